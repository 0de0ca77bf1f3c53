package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/services"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

type VendorHandler struct {
	log           *logger.Logger
	vendorService *services.VendorService
}

func NewVendorHandler(log *logger.Logger, vendorService *services.VendorService) *VendorHandler {
	return &VendorHandler{
		log:           log.With("handler", "VendorHandler"),
		vendorService: vendorService,
	}
}

type vendorRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	ContactPerson string `json:"contact_person"`
}

func (r *vendorRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return errors.New("email is required")
	}
	return nil
}

func (h *VendorHandler) Create(c *gin.Context) {
	var req vendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := req.validate(); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_vendor", err)
		return
	}

	vendor, err := h.vendorService.Create(c.Request.Context(), &types.Vendor{
		Name:          req.Name,
		Email:         req.Email,
		ContactPerson: req.ContactPerson,
	})
	if err != nil {
		h.log.Error("Create vendor failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "create_vendor_failed", err)
		return
	}
	RespondCreated(c, gin.H{"vendor": vendor})
}

func (h *VendorHandler) List(c *gin.Context) {
	vendors, err := h.vendorService.List(c.Request.Context())
	if err != nil {
		h.log.Error("List vendors failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "list_vendors_failed", err)
		return
	}
	RespondOK(c, gin.H{"vendors": vendors})
}

func (h *VendorHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_vendor_id", err)
		return
	}

	vendor, err := h.vendorService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrVendorNotFound) {
			RespondError(c, http.StatusNotFound, "vendor_not_found", err)
			return
		}
		h.log.Error("Get vendor failed", "vendor_id", id, "error", err)
		RespondError(c, http.StatusInternalServerError, "get_vendor_failed", err)
		return
	}
	RespondOK(c, gin.H{"vendor": vendor})
}

func (h *VendorHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_vendor_id", err)
		return
	}

	var req vendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := req.validate(); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_vendor", err)
		return
	}

	vendor, err := h.vendorService.Update(c.Request.Context(), &types.Vendor{
		ID:            id,
		Name:          req.Name,
		Email:         req.Email,
		ContactPerson: req.ContactPerson,
	})
	if err != nil {
		if errors.Is(err, services.ErrVendorNotFound) {
			RespondError(c, http.StatusNotFound, "vendor_not_found", err)
			return
		}
		h.log.Error("Update vendor failed", "vendor_id", id, "error", err)
		RespondError(c, http.StatusInternalServerError, "update_vendor_failed", err)
		return
	}
	RespondOK(c, gin.H{"vendor": vendor})
}

func (h *VendorHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_vendor_id", err)
		return
	}

	if err := h.vendorService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrVendorNotFound) {
			RespondError(c, http.StatusNotFound, "vendor_not_found", err)
			return
		}
		h.log.Error("Delete vendor failed", "vendor_id", id, "error", err)
		RespondError(c, http.StatusInternalServerError, "delete_vendor_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}
