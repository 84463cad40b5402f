package handler

import (
	"errors"
	"net/http"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/management"
	"leadflow_backend/internal/leads/pipeline"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *management.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgNoOrgContext     = "no company context"
)

func New(svc *management.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/transition", h.Transition)
	rg.GET("/:id/history", h.History)
}

func (h *Handler) Create(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}

	var req transport.CreateLeadRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), companyID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) GetByID(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id, companyID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) List(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}

	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(validator.FieldErrors(err)))
		return
	}

	result, err := h.svc.List(c.Request.Context(), companyID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Update(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	identity := httpkit.GetIdentity(c)
	lead, err := h.svc.Update(c.Request.Context(), id, companyID, req, pipeline.UIActor(identity.UserID()))
	if err != nil {
		writeError(c, err)
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Transition(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.TransitionRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	identity := httpkit.GetIdentity(c)
	lead, err := h.svc.Transition(c.Request.Context(), id, companyID, req, pipeline.UIActor(identity.UserID()))
	if err != nil {
		writeError(c, err)
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) History(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	history, err := h.svc.History(c.Request.Context(), id, companyID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, history)
}

// writeError renders refused transitions with the inputs the UI must
// collect; anything else goes through the shared error mapping.
func writeError(c *gin.Context, err error) {
	var te *domain.TransitionError
	if !errors.As(err, &te) {
		httpkit.HandleError(c, err)
		return
	}

	status := http.StatusUnprocessableEntity
	if te.Kind == domain.ErrKindInvalidTransition {
		status = http.StatusConflict
	}
	httpkit.JSON(c, status, transport.TransitionErrorResponse{
		Error:   te.Error(),
		Kind:    string(te.Kind),
		From:    string(te.From),
		To:      string(te.To),
		Missing: te.Missing,
	})
}

func (h *Handler) companyID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, false
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.HandleError(c, apperr.Forbidden(msgNoOrgContext))
		return uuid.UUID{}, false
	}
	return *tenantID, true
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest).WithDetails(err.Error()))
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(validator.FieldErrors(err)))
		return false
	}
	return true
}
