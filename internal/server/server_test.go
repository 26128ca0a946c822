package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/ytb/internal/models"
	"github.com/desertthunder/ytb/internal/services"
	"github.com/desertthunder/ytb/internal/shared"
)

// mockBulkService records calls and returns scripted results.
type mockBulkService struct {
	addResult    *models.AddResult
	removeResult *models.RemoveResult
	moveResult   *models.MoveResult
	err          error
	lastUserID   string
}

func (m *mockBulkService) Add(ctx context.Context, userID string, payload models.AddPayload) (*models.AddResult, error) {
	m.lastUserID = userID
	return m.addResult, m.err
}

func (m *mockBulkService) Remove(ctx context.Context, userID string, payload models.RemovePayload) (*models.RemoveResult, error) {
	m.lastUserID = userID
	return m.removeResult, m.err
}

func (m *mockBulkService) Move(ctx context.Context, userID string, payload models.MovePayload) (*models.MoveResult, error) {
	m.lastUserID = userID
	return m.moveResult, m.err
}

type mockQuotaService struct {
	snapshot *models.QuotaSnapshot
	err      error
}

func (m *mockQuotaService) TodayQuota(userID string) (*models.QuotaSnapshot, error) {
	return m.snapshot, m.err
}

func newTestHandler(engine *mockBulkService, quota *mockQuotaService) *APIHandler {
	return NewAPIHandler(engine, quota, shared.NewLogger(nil))
}

func TestBasicRouter(t *testing.T) {
	t.Run("rejects mismatched method", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle("POST", "/only-post", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/only-post", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", w.Code)
		}
	})

	t.Run("applies middleware in registration order", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(tag("first"), tag("second"))
		router.Handle("GET", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		req := httptest.NewRequest("GET", "/ping", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "handler" {
			t.Errorf("unexpected middleware order: %v", order)
		}
	})
}

func TestAPIHandler_Add(t *testing.T) {
	t.Run("returns result with 200", func(t *testing.T) {
		engine := &mockBulkService{addResult: &models.AddResult{
			Created:        []models.CreatedItem{{PlaylistItemID: "item-a", VideoID: "a"}},
			EstimatedQuota: 50,
		}}
		handler := newTestHandler(engine, &mockQuotaService{})

		body := `{"playlistId":"PL1","videoIds":["a"]}`
		req := httptest.NewRequest("POST", "/api/bulk/add", strings.NewReader(body))
		req.Header.Set("X-User-ID", "user-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if engine.lastUserID != "user-1" {
			t.Errorf("expected user-1, got %q", engine.lastUserID)
		}

		var result models.AddResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(result.Created) != 1 || result.EstimatedQuota != 50 {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("requires identity header", func(t *testing.T) {
		handler := newTestHandler(&mockBulkService{}, &mockQuotaService{})

		req := httptest.NewRequest("POST", "/api/bulk/add", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		handler := newTestHandler(&mockBulkService{}, &mockQuotaService{})

		req := httptest.NewRequest("POST", "/api/bulk/add", strings.NewReader("{not json"))
		req.Header.Set("X-User-ID", "user-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("rejects GET", func(t *testing.T) {
		handler := newTestHandler(&mockBulkService{}, &mockQuotaService{})

		req := httptest.NewRequest("GET", "/api/bulk/add", nil)
		req.Header.Set("X-User-ID", "user-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", w.Code)
		}
	})
}

func TestAPIHandler_ErrorMapping(t *testing.T) {
	post := func(t *testing.T, err error) *httptest.ResponseRecorder {
		t.Helper()
		handler := newTestHandler(&mockBulkService{err: err}, &mockQuotaService{})

		req := httptest.NewRequest("POST", "/api/bulk/remove", strings.NewReader(`{"items":[{"playlistItemId":"pi-1"}]}`))
		req.Header.Set("X-User-ID", "user-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", shared.ErrInvalidInput, http.StatusBadRequest},
		{"missing tokens", shared.ErrNoTokens, http.StatusUnauthorized},
		{"quota exhausted", &services.ProviderError{Reason: services.ReasonQuotaExceeded, Code: 403}, http.StatusTooManyRequests},
		{"forbidden", &services.ProviderError{Reason: services.ReasonForbidden, Code: 403}, http.StatusForbidden},
		{"unclassified", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, tt.err)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAPIHandler_Quota(t *testing.T) {
	t.Run("returns today's snapshot", func(t *testing.T) {
		quota := &mockQuotaService{snapshot: &models.QuotaSnapshot{Used: 150, Remain: 9850, Budget: 10000}}
		handler := newTestHandler(&mockBulkService{}, quota)

		req := httptest.NewRequest("GET", "/api/quota", nil)
		req.Header.Set("X-User-ID", "user-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}

		var snapshot models.QuotaSnapshot
		if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if snapshot.Used != 150 || snapshot.Remain != 9850 {
			t.Errorf("unexpected snapshot: %+v", snapshot)
		}
	})

	t.Run("rejects POST", func(t *testing.T) {
		handler := newTestHandler(&mockBulkService{}, &mockQuotaService{})

		req := httptest.NewRequest("POST", "/api/quota", nil)
		req.Header.Set("X-User-ID", "user-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", w.Code)
		}
	})
}

func TestAPIHandler_UnknownRoute(t *testing.T) {
	handler := newTestHandler(&mockBulkService{}, &mockQuotaService{})

	req := httptest.NewRequest("GET", "/api/unknown", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
