package handler

import (
	"strconv"

	"github.com/downform/backend/internal/domain/batch"
	"github.com/downform/backend/internal/domain/shared"
	"github.com/downform/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BatchHandler handles process batch API endpoints
type BatchHandler struct {
	BaseHandler
	batchRepo batch.ProcessBatchRepository
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(batchRepo batch.ProcessBatchRepository) *BatchHandler {
	return &BatchHandler{batchRepo: batchRepo}
}

// GetBatch returns one process batch by id
func (h *BatchHandler) GetBatch(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.BadRequest(c, "Invalid batch id")
		return
	}

	b, err := h.batchRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toBatchResponse(b))
}

// ListBatches returns recent process batches, optionally filtered by template
func (h *BatchHandler) ListBatches(c *gin.Context) {
	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}

	filter := shared.DefaultFilter()
	filter.Page = listReq.Page
	filter.PageSize = listReq.PageSize
	if code := c.Query("template_code"); code != "" {
		filter.Filters["template_code"] = code
	}

	batches, err := h.batchRepo.FindRecent(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := make([]dto.BatchResponse, len(batches))
	for i := range batches {
		resp[i] = toBatchResponse(&batches[i])
	}
	h.Success(c, resp)
}

// RegisterRoutes registers process batch routes
func (h *BatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	batches := rg.Group("/batches")
	{
		batches.GET("", h.ListBatches)
		batches.GET("/:id", h.GetBatch)
	}
}

func toBatchResponse(b *batch.ProcessBatch) dto.BatchResponse {
	return dto.BatchResponse{
		ID:           b.ID,
		TemplateCode: b.TemplateCode,
		Source:       b.Source,
		TotalRows:    b.TotalRows,
		InsertedRows: b.InsertedRows,
		UpdatedRows:  b.UpdatedRows,
		ErrorRows:    b.ErrorRows,
		Status:       string(b.Status),
		ErrorMessage: b.ErrorMessage,
	}
}
