package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInvalidPayload = "invalid payload: expected a JSON object"
	errInternal       = "internal server error"

	msgLeadCreated = "Lead created"
	msgLeadUpdated = "Lead updated"

	maxPayloadBytes = 1 << 20
)

// ContactResponse is returned to the CRM on success.
type ContactResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	LeadID  uuid.UUID `json:"lead_id"`
}

// ClientErrorResponse is returned for payloads the CRM must fix.
type ClientErrorResponse struct {
	Error string `json:"error"`
}

// ServerErrorResponse is returned when the delivery could not be applied.
type ServerErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler handles webhook HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleCRMContact processes one inbound contact.
// POST /api/v1/webhook/crm
func (h *Handler) HandleCRMContact(c *gin.Context) {
	raw, payload, ok := readPayload(c)
	if !ok {
		return
	}

	result, err := h.service.ProcessContact(c.Request.Context(), payload, raw)
	switch {
	case errors.Is(err, ErrMissingTenantScope):
		c.JSON(http.StatusBadRequest, ClientErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, ErrUnknownCompany):
		c.JSON(http.StatusNotFound, ClientErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, ServerErrorResponse{Success: false, Error: errInternal})
		return
	}

	message := msgLeadUpdated
	if result.Created {
		message = msgLeadCreated
	}
	c.JSON(http.StatusOK, ContactResponse{
		Success: true,
		Message: message,
		LeadID:  result.LeadID,
	})
}

// readPayload reads the body and decodes it as a JSON object, keeping
// numbers as json.Number so long ids survive intact.
func readPayload(c *gin.Context) ([]byte, map[string]any, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ClientErrorResponse{Error: errInvalidPayload})
		return nil, nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || payload == nil {
		c.JSON(http.StatusBadRequest, ClientErrorResponse{Error: errInvalidPayload})
		return nil, nil, false
	}
	return raw, payload, true
}
