package summary

import (
	"errors"
	"strconv"

	"github.com/compresso/core/internal/config"
	"github.com/compresso/core/internal/models"
	"github.com/compresso/core/internal/pkg/markdown"
	"github.com/compresso/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *Service
	cache  ResultCache
	cfg    *config.AppConfig
	logger *zap.Logger
}

func NewHandler(svc *Service, cache ResultCache, cfg *config.AppConfig, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, cache: cache, cfg: cfg, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/summarize", h.summarize)
	rg.GET("/summaries/recent", h.listRecent)
	rg.GET("/summaries/:id", h.getByID)
	rg.DELETE("/summaries/:id", h.delete)
}

// POST /summarize
func (h *Handler) summarize(c *gin.Context) {
	var dto summarizeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	mode, err := models.ParseSummaryMode(dto.Mode)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	detail, err := models.ParseDetailLevel(dto.Detail)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	model := dto.Model
	if model == "" {
		model = h.cfg.DefaultModel
	}
	locale := dto.Locale
	if !h.localeAllowed(locale) {
		locale = h.cfg.DefaultLocale
	}

	opts := models.SummaryOptions{
		Mode:   mode,
		Detail: detail,
		Model:  model,
		Locale: locale,
	}

	result, err := h.svc.Execute(c.Request.Context(), dto.Input, opts)
	if err != nil {
		h.logger.Error("summarization failed", zap.Error(err))
		h.renderError(c, err)
		return
	}

	// Re-store under the user-visible id so history and permalinks work;
	// only this id-keyed write joins the recency index.
	h.cache.Put(c.Request.Context(), result.ID, result, true)

	response.OK(c, result)
}

// GET /summaries/recent
func (h *Handler) listRecent(c *gin.Context) {
	limit := h.cache.Capacity()
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	results := h.cache.ListRecent(c.Request.Context(), limit)
	if results == nil {
		results = []*models.SummaryResult{}
	}
	response.OK(c, results)
}

// GET /summaries/:id
func (h *Handler) getByID(c *gin.Context) {
	result := h.cache.Get(c.Request.Context(), c.Param("id"))
	if result == nil {
		response.NotFoundMsg(c, "summary not found")
		return
	}
	if c.Query("rendered") == "1" {
		response.OK(c, renderedResponse{
			SummaryResult: result,
			ContentHTML:   markdown.RenderHTML(result.ContentMD),
		})
		return
	}
	response.OK(c, result)
}

// DELETE /summaries/:id
func (h *Handler) delete(c *gin.Context) {
	h.cache.Delete(c.Request.Context(), c.Param("id"))
	response.NoContent(c)
}

// localeAllowed checks the requested locale against the configured
// allow-list. Unknown locales fall back to the default rather than failing.
func (h *Handler) localeAllowed(locale string) bool {
	if locale == "" {
		return false
	}
	for _, allowed := range h.cfg.AllowedLocales {
		if locale == allowed {
			return true
		}
	}
	return false
}

func (h *Handler) renderError(c *gin.Context, err error) {
	var cfgErr *models.ConfigurationError
	var acqErr *models.AcquisitionError
	switch {
	case errors.As(err, &cfgErr):
		response.BadRequest(c, cfgErr.Error())
	case errors.As(err, &acqErr):
		response.UnprocessableEntity(c, acqErr.Error())
	default:
		response.InternalError(c, err)
	}
}
