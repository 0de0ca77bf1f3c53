package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/services"
)

type EmailHandler struct {
	log              *logger.Logger
	ingestionService *services.IngestionService
}

func NewEmailHandler(log *logger.Logger, ingestionService *services.IngestionService) *EmailHandler {
	return &EmailHandler{
		log:              log.With("handler", "EmailHandler"),
		ingestionService: ingestionService,
	}
}

type ingestRequest struct {
	// RefHint seeds the fixture subject when the mail transport is mocked,
	// so a demo flow can correlate the fixture reply to a real RFP.
	RefHint string `json:"ref_hint"`
}

func (h *EmailHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}

	summary, err := h.ingestionService.FetchAndIngest(c.Request.Context(), req.RefHint)
	if err != nil {
		h.log.Error("Ingestion failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "ingest_failed", err)
		return
	}
	RespondOK(c, gin.H{"summary": summary})
}
