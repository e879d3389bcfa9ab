package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atelierdevis/devis-gateway/internal/logger"
	"github.com/atelierdevis/devis-gateway/internal/model"
	"github.com/atelierdevis/devis-gateway/internal/repository"
	"github.com/atelierdevis/devis-gateway/internal/util"
)

// ObjectStorage uploads one attachment and returns its public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, content []byte) (string, error)
}

// Notifier sends the summary email for one submission.
type Notifier interface {
	SendOrderNotification(ctx context.Context, sub model.Submission, orderID string, urls, warnings []string) error
}

// EventPublisher emits the best-effort order-received event.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.OrderEvent) error
}

// Result is the aggregate outcome of one submission. Warnings carry every
// non-fatal step failure; an empty list means full success.
type Result struct {
	OrderID       string
	Submission    model.Submission
	UploadedFiles []string
	FilesCount    int
	Warnings      []model.Warning
}

// Pipeline runs a submission through upload, persistence, and notification.
// Once parsing succeeds it never aborts: every later failure becomes a
// warning so a customer inquiry is never silently dropped.
type Pipeline struct {
	storage  ObjectStorage
	orders   repository.OrdersRepository
	notifier Notifier
	events   EventPublisher

	newID func() string
	now   func() time.Time
}

func New(storage ObjectStorage, orders repository.OrdersRepository, notifier Notifier, events EventPublisher) *Pipeline {
	return &Pipeline{
		storage:  storage,
		orders:   orders,
		notifier: notifier,
		events:   events,
		newID:    util.NewULID,
		now:      time.Now,
	}
}

// WithIDFunc overrides id generation, for tests.
func (p *Pipeline) WithIDFunc(newID func() string) *Pipeline {
	p.newID = newID
	return p
}

// Process executes the stages in order: parse, upload, persist, notify,
// publish. Only a parse failure returns an error; the caller maps it to a
// 4xx with no side effects.
func (p *Pipeline) Process(ctx context.Context, contentType string, body io.Reader) (*Result, error) {
	sub, err := parseSubmission(contentType, body)
	if err != nil {
		return nil, err
	}

	urls, warnings := p.uploadAll(ctx, sub.Files)

	orderID := p.newID()
	order := buildOrder(orderID, sub, urls)
	if err := p.orders.Insert(ctx, order); err != nil {
		logger.Log.Error("persist order", zap.String("order_id", orderID), zap.Error(err))
		warnings = append(warnings, model.Warning{
			Kind:    model.WarningPersist,
			Message: fmt.Sprintf("Failed to create order: %v", err),
		})
		// the email still goes out so the inquiry is not lost
		orderID = ""
	}

	if err := p.notifier.SendOrderNotification(ctx, sub, orderID, urls, model.Messages(warnings)); err != nil {
		logger.Log.Error("send notification", zap.String("order_id", orderID), zap.Error(err))
		warnings = append(warnings, model.Warning{
			Kind:    model.WarningNotify,
			Message: "Failed to send email",
		})
	}

	if p.events != nil {
		if err := p.events.Publish(ctx, model.OrderEvent{
			OrderID:    orderID,
			Name:       order.Name,
			City:       sub.City,
			FilesCount: len(sub.Files),
			ReceivedAt: p.now(),
		}); err != nil {
			// best effort only, never a warning
			logger.Log.Warn("publish order event", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	return &Result{
		OrderID:       orderID,
		Submission:    sub,
		UploadedFiles: urls,
		FilesCount:    len(sub.Files),
		Warnings:      warnings,
	}, nil
}

type uploadOutcome struct {
	url  string
	warn *model.Warning
}

// uploadAll fans the files out to at most one goroutine each (the submission
// cap bounds parallelism), each writing its own slot, then folds the slots
// into an ordered URL list and warning list. All uploads complete before the
// persistence step reads the URLs.
func (p *Pipeline) uploadAll(ctx context.Context, files []model.File) ([]string, []model.Warning) {
	if len(files) == 0 {
		return nil, nil
	}

	outcomes := make([]uploadOutcome, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f model.File) {
			defer wg.Done()
			key := p.newID() + "-" + f.Filename
			url, err := p.storage.Upload(ctx, key, f.MimeType, f.Content)
			if err != nil {
				logger.Log.Error("upload attachment", zap.String("file", f.Filename), zap.Error(err))
				outcomes[i] = uploadOutcome{warn: &model.Warning{
					Kind:    model.WarningUpload,
					Message: fmt.Sprintf("Failed to upload %s: %v", f.Filename, err),
				}}
				return
			}
			outcomes[i] = uploadOutcome{url: url}
		}(i, f)
	}
	wg.Wait()

	var urls []string
	var warnings []model.Warning
	for _, o := range outcomes {
		if o.warn != nil {
			warnings = append(warnings, *o.warn)
			continue
		}
		urls = append(urls, o.url)
	}
	return urls, warnings
}

func buildOrder(id string, sub model.Submission, urls []string) model.Order {
	name := sub.Name
	if name == "" {
		name = "N/A"
	}
	return model.Order{
		ID:           id,
		Name:         name,
		Address:      nullable(sub.Address),
		ZipCode:      nullable(sub.ZipCode),
		City:         nullable(sub.City),
		Message:      nullable(sub.Message),
		Attachements: model.AttachmentList(urls),
		Status:       model.StatusPending,
	}
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
