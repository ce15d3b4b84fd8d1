package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/axelbon/pos-backend/internal/model"
	"github.com/axelbon/pos-backend/internal/repository"
	"github.com/axelbon/pos-backend/internal/service"
	"github.com/axelbon/pos-backend/pkg/pagination"
	"github.com/axelbon/pos-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	{
		group.GET("", h.GetAuditLogs)
		group.GET("/actions", h.GetAuditActions)
		group.GET("/:id", h.GetAuditLog)
	}
}

// GetAuditLogs lists audit events newest first
// @Summary      List audit logs
// @Description  Returns one page of audit events ordered by created_at descending
// @Tags         audit
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20, max 100)"
// @Success      200    {object}  response.Response{data=response.PagedData}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeError(c, err, "Failed to retrieve audit logs")
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, logs, total, p.Page, p.Limit))
}

// GetAuditLog returns a single audit event
// @Summary      Get audit log
// @Tags         audit
// @Produce      json
// @Param        id   path      int  true  "Audit log id"
// @Success      200  {object}  response.Response{data=service.AuditLogResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/audit-logs/{id} [get]
func (h *AuditHandler) GetAuditLog(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid audit log id"))
		return
	}

	log, err := h.auditService.GetAuditLog(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "Failed to retrieve audit log")
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, log))
}

// GetAuditActions lists the action names an audit event may carry
// @Summary      List audit actions
// @Tags         audit
// @Produce      json
// @Success      200  {object}  response.Response{data=[]string}
// @Router       /api/audit-logs/actions [get]
func (h *AuditHandler) GetAuditActions(c *gin.Context) {
	actions := model.AllAuditActions()
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, a.String())
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, names))
}

// writeError maps repository errors onto HTTP status codes.
func writeError(c *gin.Context, err error, msg string) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Audit log not found"))
	case errors.Is(err, repository.ErrConstraintViolation), errors.Is(err, repository.ErrInvalidPage):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, msg))
	}
}
