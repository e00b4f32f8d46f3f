package handler

import (
	"Grid-SSRM/internal/app/middleware"
	"Grid-SSRM/internal/app/ssrm"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SSRMHandler struct {
	engine      *ssrm.Engine
	scope       *Scope
	maxPageSize int
	timeout     time.Duration
}

func NewSSRMHandler(engine *ssrm.Engine, scope *Scope, maxPageSize int, timeout time.Duration) *SSRMHandler {
	return &SSRMHandler{
		engine:      engine,
		scope:       scope,
		maxPageSize: maxPageSize,
		timeout:     timeout,
	}
}

// Query godoc
// @Summary Fetch grid rows
// @Description Server-side row model: grouping, pivoting, filtering, sorting and windowing in one aggregation
// @Tags SSRM
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string false "Tenant identifier (required when tenant isolation is configured)"
// @Param request body ssrm.Request true "SSRM request"
// @Success 200 {object} ssrm.Result
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Failure 501 {object} map[string]string
// @Router /ssrm [post]
func (h *SSRMHandler) Query(ctx *gin.Context) {
	body, err := ctx.GetRawData()
	if err != nil {
		h.respondError(ctx, &ssrm.ValidationError{Msg: "failed to read request body"})
		return
	}

	req, err := ssrm.ParseRequest(body, h.maxPageSize)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	base, err := h.scope.Pipeline(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	runCtx := ctx.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, h.timeout)
		defer cancel()
	}

	result, err := h.engine.Run(runCtx, req, base)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// StatusFor сопоставляет ошибке движка HTTP статус
func StatusFor(err error) int {
	var validationErr *ssrm.ValidationError
	var unsupportedErr *ssrm.UnsupportedFeatureError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &unsupportedErr):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (h *SSRMHandler) respondError(ctx *gin.Context, err error) {
	status := StatusFor(err)
	requestID, _ := middleware.GetRequestID(ctx)
	entry := logrus.WithFields(logrus.Fields{"request_id": requestID, "status": status})
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		entry.Error("SSRM request failed: ", err)
	} else {
		entry.Warn("SSRM request rejected: ", err)
	}
	_ = ctx.Error(err)
	ctx.JSON(status, gin.H{"error": err.Error()})
}
