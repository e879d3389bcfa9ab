package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/atelierdevis/devis-gateway/internal/metrics"
	"github.com/atelierdevis/devis-gateway/internal/model"
	"github.com/atelierdevis/devis-gateway/internal/pipeline"
)

type sendMailResp struct {
	OK            bool     `json:"ok"`
	OrderID       *string  `json:"orderId"`
	UploadedFiles []string `json:"uploadedFiles"`
	FilesCount    int      `json:"filesCount"`
	Warnings      []string `json:"warnings,omitempty"`
	Message       string   `json:"message"`
}

// sendMailHandler runs a quote submission through the intake pipeline.
// 200 full success, 207 when warnings accumulated, 400 when the body could
// not be parsed at all.
func sendMailHandler(pipe *pipeline.Pipeline) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		contentType := req.Header.Get(echo.HeaderContentType)
		if contentType == "" {
			return c.String(http.StatusBadRequest, "Content-Type header missing")
		}
		if req.Body == nil || req.ContentLength == 0 {
			return c.String(http.StatusBadRequest, "Request body missing")
		}

		res, err := pipe.Process(req.Context(), contentType, req.Body)
		if err != nil {
			if errors.Is(err, pipeline.ErrMalformedRequest) {
				return c.String(http.StatusBadRequest, "Malformed multipart body")
			}
			log.Errorf("pipeline failed: %v", err)
			metrics.OrdersTotal.WithLabelValues("failure").Inc()
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "Erreur lors du traitement du devis",
			})
		}

		warnings := model.Messages(res.Warnings)
		for _, w := range res.Warnings {
			if w.Kind == model.WarningUpload {
				metrics.UploadFailuresTotal.Inc()
			}
		}

		status := http.StatusOK
		message := "Devis soumis avec succès"
		outcome := "success"
		if len(warnings) > 0 {
			status = http.StatusMultiStatus
			message = "Devis soumis avec des avertissements"
			outcome = "partial"
		}
		metrics.OrdersTotal.WithLabelValues(outcome).Inc()

		var orderID *string
		if res.OrderID != "" {
			orderID = &res.OrderID
		}
		uploaded := res.UploadedFiles
		if uploaded == nil {
			uploaded = []string{}
		}

		return c.JSON(status, sendMailResp{
			OK:            true,
			OrderID:       orderID,
			UploadedFiles: uploaded,
			FilesCount:    res.FilesCount,
			Warnings:      warnings,
			Message:       message,
		})
	}
}
