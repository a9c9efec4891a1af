package handler

import (
	"github.com/downform/backend/internal/application/downform"
	domain "github.com/downform/backend/internal/domain/downform"
	"github.com/downform/backend/internal/domain/shared"
	"github.com/downform/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DownFormHandler handles down-form order API endpoints
type DownFormHandler struct {
	BaseHandler
	ingestService *downformapp.IngestService
	templateRepo  domain.TemplateConfigRepository
	logger        *zap.Logger
}

// NewDownFormHandler creates a new DownFormHandler
func NewDownFormHandler(ingestService *downformapp.IngestService, templateRepo domain.TemplateConfigRepository, logger *zap.Logger) *DownFormHandler {
	return &DownFormHandler{
		ingestService: ingestService,
		templateRepo:  templateRepo,
		logger:        logger,
	}
}

// Process transforms the submitted raw records through the named
// template and upserts the result, returning the batch summary.
func (h *DownFormHandler) Process(c *gin.Context) {
	var req dto.ProcessDownFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	records := make([]domain.RawRecord, len(req.Records))
	for i, r := range req.Records {
		records[i] = domain.RawRecord(r)
	}

	result, err := h.ingestService.Process(c.Request.Context(), records, req.TemplateCode, req.Source)
	if err != nil {
		h.logger.Error("Process run failed",
			zap.String("template_code", req.TemplateCode),
			zap.Error(err),
		)
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ListTemplates returns the registered template configurations
func (h *DownFormHandler) ListTemplates(c *gin.Context) {
	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}

	filter := shared.DefaultFilter()
	filter.Page = listReq.Page
	filter.PageSize = listReq.PageSize
	templates, err := h.templateRepo.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := make([]dto.TemplateResponse, len(templates))
	for i := range templates {
		resp[i] = toTemplateResponse(&templates[i])
	}
	h.Success(c, resp)
}

// GetTemplate returns one template configuration with its active mappings
func (h *DownFormHandler) GetTemplate(c *gin.Context) {
	template, err := h.templateRepo.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toTemplateResponse(template))
}

// RegisterRoutes registers down-form order routes
func (h *DownFormHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/down-form-orders")
	{
		orders.POST("/process", h.Process)
	}

	templates := rg.Group("/templates")
	{
		templates.GET("", h.ListTemplates)
		templates.GET("/:code", h.GetTemplate)
	}
}

func toTemplateResponse(t *domain.TemplateConfig) dto.TemplateResponse {
	mappings := make([]dto.TemplateMappingResponse, len(t.Mappings))
	for i, m := range t.Mappings {
		mappings[i] = dto.TemplateMappingResponse{
			ColumnOrder:     m.ColumnOrder,
			TargetColumn:    m.TargetColumn,
			SourceField:     m.SourceField,
			ValueKind:       string(m.ValueKind),
			Derivation:      m.Derivation,
			AggregationKind: string(m.AggregationKind),
		}
	}
	return dto.TemplateResponse{
		TemplateCode:  t.TemplateCode,
		Description:   t.Description,
		IsAggregated:  t.IsAggregated,
		GroupByFields: t.GroupByFields,
		Mappings:      mappings,
	}
}
