package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/services"
)

type RFPHandler struct {
	log               *logger.Logger
	rfpService        *services.RFPService
	comparisonService *services.ComparisonService
}

func NewRFPHandler(log *logger.Logger, rfpService *services.RFPService, comparisonService *services.ComparisonService) *RFPHandler {
	return &RFPHandler{
		log:               log.With("handler", "RFPHandler"),
		rfpService:        rfpService,
		comparisonService: comparisonService,
	}
}

type createRFPRequest struct {
	Text string `json:"text"`
}

func (h *RFPHandler) Create(c *gin.Context) {
	var req createRFPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		RespondError(c, http.StatusBadRequest, "empty_text", errors.New("text is required"))
		return
	}

	rfp, err := h.rfpService.Create(c.Request.Context(), req.Text)
	if err != nil {
		h.log.Error("Create RFP failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "create_rfp_failed", err)
		return
	}
	RespondCreated(c, gin.H{"rfp": rfp})
}

func (h *RFPHandler) List(c *gin.Context) {
	rfps, err := h.rfpService.List(c.Request.Context())
	if err != nil {
		h.log.Error("List RFPs failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "list_rfps_failed", err)
		return
	}
	RespondOK(c, gin.H{"rfps": rfps})
}

func (h *RFPHandler) Get(c *gin.Context) {
	rfp, err := h.rfpService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrRFPNotFound) {
			RespondError(c, http.StatusNotFound, "rfp_not_found", err)
			return
		}
		h.log.Error("Get RFP failed", "rfp_id", c.Param("id"), "error", err)
		RespondError(c, http.StatusInternalServerError, "get_rfp_failed", err)
		return
	}
	RespondOK(c, gin.H{"rfp": rfp})
}

type sendEmailsRequest struct {
	VendorIDs []uuid.UUID `json:"vendor_ids"`
}

func (h *RFPHandler) SendEmails(c *gin.Context) {
	var req sendEmailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if len(req.VendorIDs) == 0 {
		RespondError(c, http.StatusBadRequest, "no_vendors", errors.New("vendor_ids is required"))
		return
	}

	report, err := h.rfpService.SendInvitations(c.Request.Context(), c.Param("id"), req.VendorIDs)
	if err != nil {
		if errors.Is(err, services.ErrRFPNotFound) {
			RespondError(c, http.StatusNotFound, "rfp_not_found", err)
			return
		}
		h.log.Error("Send invitations failed", "rfp_id", c.Param("id"), "error", err)
		RespondError(c, http.StatusInternalServerError, "send_emails_failed", err)
		return
	}
	RespondOK(c, gin.H{"report": report})
}

func (h *RFPHandler) Proposals(c *gin.Context) {
	proposals, err := h.rfpService.Proposals(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrRFPNotFound) {
			RespondError(c, http.StatusNotFound, "rfp_not_found", err)
			return
		}
		h.log.Error("List proposals failed", "rfp_id", c.Param("id"), "error", err)
		RespondError(c, http.StatusInternalServerError, "list_proposals_failed", err)
		return
	}
	RespondOK(c, gin.H{"proposals": proposals})
}

func (h *RFPHandler) Compare(c *gin.Context) {
	outcome, err := h.comparisonService.Compare(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRFPNotFound):
			RespondError(c, http.StatusNotFound, "rfp_not_found", err)
		case errors.Is(err, services.ErrNoProposals):
			RespondError(c, http.StatusBadRequest, "no_proposals", err)
		default:
			h.log.Error("Compare failed", "rfp_id", c.Param("id"), "error", err)
			RespondError(c, http.StatusInternalServerError, "compare_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{
		"comparison":     outcome.Result,
		"from_cache":     outcome.FromCache,
		"proposal_count": outcome.ProposalCount,
		"provenance":     outcome.Provenance,
		"created_at":     outcome.CreatedAt,
	})
}
