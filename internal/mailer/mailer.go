package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/atelierdevis/devis-gateway/internal/config"
	"github.com/atelierdevis/devis-gateway/internal/model"
)

// Mailer sends the quote notification to the fixed workshop recipient over
// SMTP. One mail per submission, no retry.
type Mailer struct {
	client *mail.Client
	from   string
	to     string
}

func New(cfg config.MailConfig) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Mailer{client: client, from: from, to: cfg.To}, nil
}

// SendOrderNotification composes and sends the summary email: text fields,
// attachment links, accumulated warnings, and the original files attached.
func (m *Mailer) SendOrderNotification(ctx context.Context, sub model.Submission, orderID string, urls, warnings []string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject(orderID))
	msg.SetBodyString(mail.TypeTextHTML, body(sub, orderID, urls, warnings))

	for _, f := range sub.Files {
		if err := msg.AttachReader(f.Filename, bytes.NewReader(f.Content),
			mail.WithFileContentType(mail.ContentType(f.MimeType))); err != nil {
			return fmt.Errorf("attach %s: %w", f.Filename, err)
		}
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func subject(orderID string) string {
	if orderID == "" {
		return "Nouveau devis"
	}
	short := orderID
	if len(short) > 8 {
		short = short[:8]
	}
	return "Nouveau devis - Order #" + short
}

func body(sub model.Submission, orderID string, urls, warnings []string) string {
	var b strings.Builder
	b.WriteString("<h2>Nouveau devis reçu</h2>")
	field(&b, "Nom", sub.Name)
	field(&b, "Email", sub.Email)
	field(&b, "Adresse", sub.Address)
	field(&b, "Code Postal", sub.ZipCode)
	field(&b, "Ville", sub.City)
	b.WriteString("<p><strong>Message :</strong></p>")
	fmt.Fprintf(&b, "<p>%s</p>", strings.ReplaceAll(escapeOrNA(sub.Message), "\n", "<br>"))

	if orderID != "" {
		fmt.Fprintf(&b, "<p><strong>Order ID :</strong> %s</p>", html.EscapeString(orderID))
	}

	if len(urls) > 0 {
		fmt.Fprintf(&b, "<h3>Pièces jointes (%d)</h3><ul>", len(urls))
		for i, u := range urls {
			name := fmt.Sprintf("Fichier %d", i+1)
			if i < len(sub.Files) && sub.Files[i].Filename != "" {
				name = sub.Files[i].Filename
			}
			fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, html.EscapeString(u), html.EscapeString(name))
		}
		b.WriteString("</ul>")
	}

	if len(warnings) > 0 {
		b.WriteString(`<h3 style="color: orange;">Avertissements</h3><ul>`)
		for _, w := range warnings {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(w))
		}
		b.WriteString("</ul>")
	}

	return b.String()
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "<p><strong>%s :</strong> %s</p>", label, escapeOrNA(value))
}

func escapeOrNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return html.EscapeString(v)
}
