package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	downformapp "github.com/downform/backend/internal/application/downform"
	"github.com/downform/backend/internal/domain/batch"
	domain "github.com/downform/backend/internal/domain/downform"
	"github.com/downform/backend/internal/domain/shared"
)

type MockTemplateConfigRepository struct {
	mock.Mock
}

func (m *MockTemplateConfigRepository) Get(ctx context.Context, templateCode string) (*domain.TemplateConfig, error) {
	args := m.Called(ctx, templateCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TemplateConfig), args.Error(1)
}

func (m *MockTemplateConfigRepository) List(ctx context.Context, filter shared.Filter) ([]domain.TemplateConfig, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TemplateConfig), args.Error(1)
}

type MockOrderRowRepository struct {
	mock.Mock
}

func (m *MockOrderRowRepository) Upsert(ctx context.Context, rows []*domain.OrderRow) (domain.UpsertResult, error) {
	args := m.Called(ctx, rows)
	return args.Get(0).(domain.UpsertResult), args.Error(1)
}

func (m *MockOrderRowRepository) FindByKey(ctx context.Context, key domain.NaturalKey) (*domain.OrderRow, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderRow), args.Error(1)
}

func (m *MockOrderRowRepository) FindByBatchID(ctx context.Context, batchID int64) ([]domain.OrderRow, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderRow), args.Error(1)
}

func (m *MockOrderRowRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.OrderRow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderRow), args.Error(1)
}

func (m *MockOrderRowRepository) CountByFormName(ctx context.Context, formName string) (int64, error) {
	args := m.Called(ctx, formName)
	return args.Get(0).(int64), args.Error(1)
}

type MockProcessBatchRepository struct {
	mock.Mock
}

func (m *MockProcessBatchRepository) Save(ctx context.Context, b *batch.ProcessBatch) error {
	args := m.Called(ctx, b)
	if b.ID == 0 {
		b.ID = 7
	}
	return args.Error(0)
}

func (m *MockProcessBatchRepository) FindByID(ctx context.Context, id int64) (*batch.ProcessBatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.ProcessBatch), args.Error(1)
}

func (m *MockProcessBatchRepository) FindRecent(ctx context.Context, filter shared.Filter) ([]batch.ProcessBatch, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]batch.ProcessBatch), args.Error(1)
}

type evalStub func(expression string, record domain.RawRecord) (any, error)

func (f evalStub) Evaluate(expression string, record domain.RawRecord) (any, error) {
	return f(expression, record)
}

type downFormHandlerMocks struct {
	templateRepo *MockTemplateConfigRepository
	orderRepo    *MockOrderRowRepository
	batchRepo    *MockProcessBatchRepository
}

func setupDownFormHandler(t *testing.T) (*gin.Engine, downFormHandlerMocks) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mocks := downFormHandlerMocks{
		templateRepo: new(MockTemplateConfigRepository),
		orderRepo:    new(MockOrderRowRepository),
		batchRepo:    new(MockProcessBatchRepository),
	}

	logger := zap.NewNop()
	evaluator := evalStub(func(expression string, record domain.RawRecord) (any, error) {
		return expression, nil
	})
	transformService := downformapp.NewTransformService(mocks.templateRepo, evaluator, logger)
	ingestService := downformapp.NewIngestService(transformService, mocks.orderRepo, mocks.batchRepo, logger)

	h := NewDownFormHandler(ingestService, mocks.templateRepo, logger)
	engine := gin.New()
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine, mocks
}

func orderTemplate() *domain.TemplateConfig {
	return &domain.TemplateConfig{
		TemplateCode: "gmarket_erp",
		Description:  "Gmarket ERP form",
		Mappings: []domain.ColumnMapping{
			{ColumnOrder: 1, TargetColumn: "order_id", SourceField: "order_id", ValueKind: domain.ValueKindCopy, Active: true},
			{ColumnOrder: 2, TargetColumn: "item_name", SourceField: "item_name", ValueKind: domain.ValueKindCopy, Active: true},
		},
	}
}

func TestDownFormHandler_Process(t *testing.T) {
	engine, mocks := setupDownFormHandler(t)

	mocks.templateRepo.On("Get", mock.Anything, "gmarket_erp").Return(orderTemplate(), nil)
	mocks.batchRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	mocks.orderRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(rows []*domain.OrderRow) bool {
		return len(rows) == 2 && rows[0].FormName == "gmarket_erp"
	})).Return(domain.UpsertResult{Inserted: 2, Updated: 0}, nil)

	body, _ := json.Marshal(map[string]any{
		"template_code": "gmarket_erp",
		"source":        "upload",
		"records": []map[string]any{
			{"order_id": "A-1", "item_name": "Red Shirt"},
			{"order_id": "A-2", "item_name": "Blue Shirt"},
		},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/down-form-orders/process", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                      `json:"success"`
		Data    downformapp.ProcessResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(7), resp.Data.BatchID)
	assert.Equal(t, 2, resp.Data.TotalRows)
	assert.Equal(t, 2, resp.Data.Inserted)
	assert.Equal(t, 0, resp.Data.Updated)
	assert.Equal(t, 0, resp.Data.Skipped)

	mocks.orderRepo.AssertExpectations(t)
}

func TestDownFormHandler_Process_InvalidPayload(t *testing.T) {
	engine, _ := setupDownFormHandler(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/down-form-orders/process", bytes.NewReader([]byte(`{"source":"upload"}`)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
}

func TestDownFormHandler_Process_TemplateNotFound(t *testing.T) {
	engine, mocks := setupDownFormHandler(t)

	mocks.templateRepo.On("Get", mock.Anything, "missing").Return(nil, domain.ErrTemplateNotFound)
	mocks.batchRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	body, _ := json.Marshal(map[string]any{
		"template_code": "missing",
		"records":       []map[string]any{{"order_id": "A-1"}},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/down-form-orders/process", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TEMPLATE_NOT_FOUND", resp.Error.Code)
}

func TestDownFormHandler_ListTemplates(t *testing.T) {
	engine, mocks := setupDownFormHandler(t)

	mocks.templateRepo.On("List", mock.Anything, mock.Anything).
		Return([]domain.TemplateConfig{*orderTemplate()}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/templates", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			TemplateCode string `json:"template_code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "gmarket_erp", resp.Data[0].TemplateCode)
}

func TestDownFormHandler_GetTemplate(t *testing.T) {
	engine, mocks := setupDownFormHandler(t)

	mocks.templateRepo.On("Get", mock.Anything, "gmarket_erp").Return(orderTemplate(), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/templates/gmarket_erp", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			TemplateCode string `json:"template_code"`
			Mappings     []struct {
				TargetColumn string `json:"target_column"`
			} `json:"mappings"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "gmarket_erp", resp.Data.TemplateCode)
	require.Len(t, resp.Data.Mappings, 2)
	assert.Equal(t, "order_id", resp.Data.Mappings[0].TargetColumn)
}

func TestDownFormHandler_GetTemplate_NotFound(t *testing.T) {
	engine, mocks := setupDownFormHandler(t)

	mocks.templateRepo.On("Get", mock.Anything, "missing").Return(nil, domain.ErrTemplateNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/templates/missing", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
