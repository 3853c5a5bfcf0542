package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/portalx/internal/middleware"
	"github.com/hitoshi/portalx/internal/model"
)

// withClaims はテスト用に認証情報をコンテキストに注入するヘルパー。
func withClaims(r *http.Request, userID int64, role model.Role) *http.Request {
	ctx := middleware.ContextWithClaims(r.Context(), &model.Claims{
		UserID: userID,
		Email:  "user@example.com",
		Role:   role,
	})
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// withVisitor はテスト用に訪問者IDを注入するヘルパー。
func withVisitor(r *http.Request, visitorID string) *http.Request {
	return r.WithContext(middleware.ContextWithVisitorID(r.Context(), visitorID))
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeBody はレスポンスボディをvにデコードするヘルパー。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v (body=%s)", err, w.Body.String())
	}
}

func strPtr(s string) *string { return &s }
