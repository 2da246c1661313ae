package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/application/services"
)

// ExportHandler serves the rendered strategy document
type ExportHandler struct {
	service *services.ExportService
	logger  *zap.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(service *services.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		service: service,
		logger:  logger,
	}
}

// Strategy handles GET /config/dynamic_strategy.toml. Until the first
// successful render there is nothing to serve.
func (h *ExportHandler) Strategy(w http.ResponseWriter, r *http.Request) {
	doc, renderedAt, ok := h.service.Document()
	if !ok {
		http.Error(w, "strategy document not rendered yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/toml")
	w.Header().Set("Last-Modified", renderedAt.UTC().Format(time.RFC1123))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.logger.Warn("Failed to write strategy document", zap.Error(err))
	}
}
