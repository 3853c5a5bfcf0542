package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "受信したIDを使う", incoming: "abc-123", keep: true},
		{name: "未指定なら生成", incoming: "", keep: false},
		{name: "長すぎるIDは置き換える", incoming: strings.Repeat("a", 65), keep: false},
		{name: "制御文字を含むIDは置き換える", incoming: "a\tb", keep: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if got == "" {
				t.Fatal("request id should be set")
			}
			if (got == tt.incoming) != tt.keep {
				t.Errorf("request id = %q, incoming %q, keep=%v", got, tt.incoming, tt.keep)
			}
			if w.Header().Get(RequestIDHeader) != got {
				t.Errorf("response header = %q, want %q", w.Header().Get(RequestIDHeader), got)
			}
		})
	}
}
