package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/procurement-agent/middleware"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/services"
	"github.com/upb/procurement-agent/services/intent"
	"github.com/upb/procurement-agent/services/procurement"
	"github.com/upb/procurement-agent/services/vendors"
	"go.uber.org/zap"
)

// MockRulesService is a mock implementation of RulesService
type MockRulesService struct {
	mock.Mock
}

func (m *MockRulesService) StoreRules(ctx context.Context, req procurement.StoreRulesRequest) (*procurement.RulesConfirmation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.RulesConfirmation), args.Error(1)
}

func (m *MockRulesService) GetRules(ctx context.Context, site string) (*models.SiteRules, error) {
	args := m.Called(ctx, site)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SiteRules), args.Error(1)
}

// MockVendorService is a mock implementation of VendorService
type MockVendorService struct {
	mock.Mock
}

func (m *MockVendorService) LoadCatalog(ctx context.Context) ([]models.Vendor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vendor), args.Error(1)
}

func (m *MockVendorService) Evaluate(ctx context.Context, banned []string) (*vendors.EvaluationResult, error) {
	args := m.Called(ctx, banned)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendors.EvaluationResult), args.Error(1)
}

// MockOrderService is a mock implementation of OrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) ProcessOrder(ctx context.Context, req procurement.OrderRequest) (*models.Decision, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Decision), args.Error(1)
}

// MockDispatcher is a mock implementation of MessageDispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) HandleMessage(ctx context.Context, text string) (*intent.Reply, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intent.Reply), args.Error(1)
}

// MockApprovalService is a mock implementation of ApprovalService
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) Get(ctx context.Context, id uuid.UUID) (*models.PendingApproval, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingApproval), args.Error(1)
}

func (m *MockApprovalService) List(ctx context.Context, status models.ApprovalStatus) ([]*models.PendingApproval, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PendingApproval), args.Error(1)
}

func (m *MockApprovalService) Approve(ctx context.Context, id uuid.UUID, actor string) (*models.PendingApproval, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingApproval), args.Error(1)
}

func (m *MockApprovalService) Reject(ctx context.Context, id uuid.UUID, actor, reason string) (*models.PendingApproval, error) {
	args := m.Called(ctx, id, actor, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingApproval), args.Error(1)
}

// withURLParams attaches chi route parameters to a request
func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", response)
	return data
}

func TestRulesHandler_HandlePutRules(t *testing.T) {
	logger := zap.NewNop()

	t.Run("stores rules for the site in the path", func(t *testing.T) {
		svc := new(MockRulesService)
		h := NewRulesHandler(svc, logger)

		stored := models.NewSiteRules("Pune", 40000, []string{"BadRock"})
		svc.On("StoreRules", mock.Anything, procurement.StoreRulesRequest{
			Site: "Pune", ApprovalLimit: 40000, BannedVendors: []string{"BadRock"},
		}).Return(&procurement.RulesConfirmation{Status: procurement.StatusRulesStored, Site: "Pune", Rules: stored}, nil)

		body := `{"approval_limit":40000,"banned_vendors":["BadRock"]}`
		req := withURLParams(httptest.NewRequest(http.MethodPut, "/api/v1/sites/Pune/rules", bytes.NewBufferString(body)),
			map[string]string{"site": "Pune"})
		w := httptest.NewRecorder()

		h.HandlePutRules(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "RULES_STORED", data["status"])
		assert.Equal(t, "Pune", data["site"])
		rules := data["rules"].(map[string]interface{})
		assert.Equal(t, float64(40000), rules["approval_limit"])
		svc.AssertExpectations(t)
	})

	t.Run("missing banned list stores an empty one", func(t *testing.T) {
		svc := new(MockRulesService)
		h := NewRulesHandler(svc, logger)
		svc.On("StoreRules", mock.Anything, procurement.StoreRulesRequest{
			Site: "Pune", ApprovalLimit: 0, BannedVendors: []string{},
		}).Return(&procurement.RulesConfirmation{Status: procurement.StatusRulesStored, Site: "Pune"}, nil)

		req := withURLParams(httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{"approval_limit":0}`)),
			map[string]string{"site": "Pune"})
		w := httptest.NewRecorder()

		h.HandlePutRules(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("missing approval limit", func(t *testing.T) {
		svc := new(MockRulesService)
		h := NewRulesHandler(svc, logger)

		req := withURLParams(httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{"banned_vendors":[]}`)),
			map[string]string{"site": "Pune"})
		w := httptest.NewRecorder()

		h.HandlePutRules(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "StoreRules", mock.Anything, mock.Anything)
	})

	t.Run("unknown field", func(t *testing.T) {
		svc := new(MockRulesService)
		h := NewRulesHandler(svc, logger)

		req := withURLParams(httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{"approval_limit":1,"limit":2}`)),
			map[string]string{"site": "Pune"})
		w := httptest.NewRecorder()

		h.HandlePutRules(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rule store unavailable", func(t *testing.T) {
		svc := new(MockRulesService)
		h := NewRulesHandler(svc, logger)
		svc.On("StoreRules", mock.Anything, mock.Anything).
			Return(nil, services.WrapBackingStore("failed to store site rules", errors.New("read-only file system")))

		req := withURLParams(httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{"approval_limit":1}`)),
			map[string]string{"site": "Pune"})
		w := httptest.NewRecorder()

		h.HandlePutRules(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRulesHandler_HandleGetRules(t *testing.T) {
	logger := zap.NewNop()

	t.Run("found", func(t *testing.T) {
		svc := new(MockRulesService)
		svc.On("GetRules", mock.Anything, "Pune").Return(models.NewSiteRules("Pune", 40000, []string{"BadRock"}), nil)

		w := httptest.NewRecorder()
		NewRulesHandler(svc, logger).HandleGetRules(w, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil),
			map[string]string{"site": "Pune"}))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, []interface{}{"BadRock"}, data["banned_vendors"])
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockRulesService)
		svc.On("GetRules", mock.Anything, "Nagpur").Return(nil, services.ErrRulesNotFound)

		w := httptest.NewRecorder()
		NewRulesHandler(svc, logger).HandleGetRules(w, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil),
			map[string]string{"site": "Nagpur"}))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestVendorHandler(t *testing.T) {
	logger := zap.NewNop()
	catalog := []models.Vendor{{Name: "UltraTech", Price: 45000}, {Name: "BadRock", Price: 38000}}

	t.Run("list", func(t *testing.T) {
		svc := new(MockVendorService)
		svc.On("LoadCatalog", mock.Anything).Return(catalog, nil)

		w := httptest.NewRecorder()
		NewVendorHandler(svc, logger).HandleListVendors(w, httptest.NewRequest(http.MethodGet, "/api/v1/vendors", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Data []models.Vendor `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, catalog, response.Data)
	})

	t.Run("evaluate", func(t *testing.T) {
		svc := new(MockVendorService)
		selected := catalog[0]
		svc.On("Evaluate", mock.Anything, []string{"BadRock"}).Return(&vendors.EvaluationResult{
			AllVendors:   catalog,
			ValidVendors: catalog[:1],
			Selected:     &selected,
		}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/vendors/evaluate", bytes.NewBufferString(`{"banned_vendors":["BadRock"]}`))
		w := httptest.NewRecorder()
		NewVendorHandler(svc, logger).HandleEvaluate(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "UltraTech", data["selected_vendor"].(map[string]interface{})["name"])
	})

	t.Run("catalog unavailable", func(t *testing.T) {
		svc := new(MockVendorService)
		svc.On("LoadCatalog", mock.Anything).Return(nil, services.WrapBackingStore("failed to load vendor catalog", errors.New("NoSuchKey")))

		w := httptest.NewRecorder()
		NewVendorHandler(svc, logger).HandleListVendors(w, httptest.NewRequest(http.MethodGet, "/api/v1/vendors", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestOrderHandler_HandleCreateOrder(t *testing.T) {
	logger := zap.NewNop()
	orderID := uuid.New()

	tests := []struct {
		name       string
		decision   *models.Decision
		wantStatus int
	}{
		{
			name:       "approved",
			decision:   &models.Decision{Status: models.DecisionApproved, SelectedVendor: "BadRock", Cost: 38000},
			wantStatus: http.StatusOK,
		},
		{
			name:       "awaiting approval",
			decision:   &models.Decision{Status: models.DecisionAwaitingApproval, OrderID: &orderID, SelectedVendor: "UltraTech"},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "all vendors banned",
			decision:   &models.Decision{Status: models.DecisionRejected, Reason: procurement.ReasonAllVendorsBanned},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown site",
			decision:   &models.Decision{Status: models.DecisionError, Reason: "No rules found for site 'Nagpur'. Please set up site rules first."},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			svc.On("ProcessOrder", mock.Anything, procurement.OrderRequest{Site: "Pune", Item: "cement", Quantity: 100}).
				Return(tt.decision, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders",
				bytes.NewBufferString(`{"site":"Pune","item":"cement","quantity":100}`))
			w := httptest.NewRecorder()

			NewOrderHandler(svc, nil, logger).HandleCreateOrder(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			data := decodeData(t, w)
			assert.Equal(t, string(tt.decision.Status), data["status"])
		})
	}

	t.Run("invalid body", func(t *testing.T) {
		svc := new(MockOrderService)
		w := httptest.NewRecorder()

		NewOrderHandler(svc, nil, logger).HandleCreateOrder(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "ProcessOrder", mock.Anything, mock.Anything)
	})
}

func TestOrderHandler_HandleMessage(t *testing.T) {
	logger := zap.NewNop()

	t.Run("no provider configured", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewOrderHandler(new(MockOrderService), nil, logger).
			HandleMessage(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"message":"hi"}`)))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("rules message", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		msg := "For the Pune site, the maximum approval limit is ₹40,000 and we strictly avoid 'BadRock Cements'."
		dispatcher.On("HandleMessage", mock.Anything, msg).Return(&intent.Reply{
			Intent: intent.KindSetRules,
			Rules:  &procurement.RulesConfirmation{Status: procurement.StatusRulesStored, Site: "Pune"},
		}, nil)

		body, _ := json.Marshal(MessageRequest{Message: msg})
		w := httptest.NewRecorder()
		NewOrderHandler(new(MockOrderService), dispatcher, logger).
			HandleMessage(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewBuffer(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "set_rules", data["intent"])
	})

	t.Run("held order", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		dispatcher.On("HandleMessage", mock.Anything, "order").Return(&intent.Reply{
			Intent:   intent.KindProcurement,
			Decision: &models.Decision{Status: models.DecisionAwaitingApproval},
		}, nil)

		w := httptest.NewRecorder()
		NewOrderHandler(new(MockOrderService), dispatcher, logger).
			HandleMessage(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"message":"order"}`)))

		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("unrecognised message", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		dispatcher.On("HandleMessage", mock.Anything, "hello").Return(nil, services.ErrIntentUnrecognized)

		w := httptest.NewRecorder()
		NewOrderHandler(new(MockOrderService), dispatcher, logger).
			HandleMessage(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"message":"hello"}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("provider down", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		dispatcher.On("HandleMessage", mock.Anything, "order").Return(nil, services.ErrProviderUnavailable)

		w := httptest.NewRecorder()
		NewOrderHandler(new(MockOrderService), dispatcher, logger).
			HandleMessage(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"message":"order"}`)))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("empty message", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		w := httptest.NewRecorder()
		NewOrderHandler(new(MockOrderService), dispatcher, logger).
			HandleMessage(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"message":""}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		dispatcher.AssertNotCalled(t, "HandleMessage", mock.Anything, mock.Anything)
	})
}

func pendingApproval(status models.ApprovalStatus) *models.PendingApproval {
	decision := &models.Decision{Status: models.DecisionAwaitingApproval, Site: "Pune", SelectedVendor: "UltraTech", Cost: 45000, ApprovalLimit: 40000}
	a := models.NewPendingApproval(decision)
	a.Status = status
	return a
}

func TestApprovalHandler(t *testing.T) {
	logger := zap.NewNop()

	t.Run("list defaults to pending", func(t *testing.T) {
		svc := new(MockApprovalService)
		svc.On("List", mock.Anything, models.ApprovalPending).Return([]*models.PendingApproval{pendingApproval(models.ApprovalPending)}, nil)

		w := httptest.NewRecorder()
		NewApprovalHandler(svc, logger).HandleListApprovals(w, httptest.NewRequest(http.MethodGet, "/api/v1/approvals", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("list all", func(t *testing.T) {
		svc := new(MockApprovalService)
		svc.On("List", mock.Anything, models.ApprovalStatus("")).Return([]*models.PendingApproval{}, nil)

		w := httptest.NewRecorder()
		NewApprovalHandler(svc, logger).HandleListApprovals(w, httptest.NewRequest(http.MethodGet, "/api/v1/approvals?status=all", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("get with malformed id", func(t *testing.T) {
		svc := new(MockApprovalService)
		w := httptest.NewRecorder()
		NewApprovalHandler(svc, logger).HandleGetApproval(w, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil),
			map[string]string{"id": "not-a-uuid"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get unknown id", func(t *testing.T) {
		svc := new(MockApprovalService)
		id := uuid.New()
		svc.On("Get", mock.Anything, id).Return(nil, services.ErrApprovalNotFound)

		w := httptest.NewRecorder()
		NewApprovalHandler(svc, logger).HandleGetApproval(w, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil),
			map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("approve records the reviewer", func(t *testing.T) {
		svc := new(MockApprovalService)
		resolved := pendingApproval(models.ApprovalApproved)
		svc.On("Approve", mock.Anything, resolved.ID, "manager@pune.example").Return(resolved, nil)

		req := withURLParams(httptest.NewRequest(http.MethodPost, "/", nil), map[string]string{"id": resolved.ID.String()})
		req = req.WithContext(middleware.WithClaims(req.Context(), &middleware.Claims{Sub: "u1", Email: "manager@pune.example"}))
		w := httptest.NewRecorder()

		NewApprovalHandler(svc, logger).HandleApprove(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("reject without body", func(t *testing.T) {
		svc := new(MockApprovalService)
		resolved := pendingApproval(models.ApprovalRejected)
		svc.On("Reject", mock.Anything, resolved.ID, "u1", "").Return(resolved, nil)

		req := withURLParams(httptest.NewRequest(http.MethodPost, "/", nil), map[string]string{"id": resolved.ID.String()})
		req = req.WithContext(middleware.WithClaims(req.Context(), &middleware.Claims{Sub: "u1"}))
		w := httptest.NewRecorder()

		NewApprovalHandler(svc, logger).HandleReject(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("reject with reason", func(t *testing.T) {
		svc := new(MockApprovalService)
		resolved := pendingApproval(models.ApprovalRejected)
		svc.On("Reject", mock.Anything, resolved.ID, "", "Over budget this quarter").Return(resolved, nil)

		req := withURLParams(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"reason":"Over budget this quarter"}`)),
			map[string]string{"id": resolved.ID.String()})
		w := httptest.NewRecorder()

		NewApprovalHandler(svc, logger).HandleReject(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("second resolution conflicts", func(t *testing.T) {
		svc := new(MockApprovalService)
		id := uuid.New()
		svc.On("Approve", mock.Anything, id, "").Return(nil,
			services.NewDomainError(services.ErrorTypeConflict, "approval already resolved", nil).WithDetail("status", "rejected"))

		w := httptest.NewRecorder()
		NewApprovalHandler(svc, logger).HandleApprove(w, withURLParams(httptest.NewRequest(http.MethodPost, "/", nil),
			map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
