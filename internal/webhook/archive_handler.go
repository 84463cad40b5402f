package webhook

import (
	"errors"
	"io"
	"net/http"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgPayloadNotFound = "archived payload not found"

// ArchiveHandler lets company admins inspect the raw deliveries that
// produced or updated a lead.
type ArchiveHandler struct {
	archive *PayloadArchiver
}

// NewArchiveHandler creates an ArchiveHandler.
func NewArchiveHandler(archive *PayloadArchiver) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

// RegisterRoutes mounts the archive routes on an admin group.
func (h *ArchiveHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:leadId", h.List)
	rg.GET("/:leadId/:file", h.Download)
}

// List handles GET /admin/webhook/payloads/:leadId.
func (h *ArchiveHandler) List(c *gin.Context) {
	companyID, leadID, ok := archiveScope(c)
	if !ok {
		return
	}

	items, err := h.archive.List(c.Request.Context(), companyID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": items})
}

// Download handles GET /admin/webhook/payloads/:leadId/:file.
func (h *ArchiveHandler) Download(c *gin.Context) {
	companyID, leadID, ok := archiveScope(c)
	if !ok {
		return
	}

	body, err := h.archive.Open(c.Request.Context(), companyID, leadID, c.Param("file"))
	if errors.Is(err, ErrPayloadNotFound) {
		httpkit.HandleError(c, apperr.NotFound(msgPayloadNotFound))
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	defer body.Close()

	c.Header("Content-Type", payloadContentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}

func archiveScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, uuid.UUID{}, false
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.HandleError(c, apperr.Forbidden("no company context"))
		return uuid.UUID{}, uuid.UUID{}, false
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return uuid.UUID{}, uuid.UUID{}, false
	}
	return *tenantID, leadID, true
}
