package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/portalx/internal/analytics"
	"github.com/hitoshi/portalx/internal/middleware"
)

const (
	maxBeaconBodySize = 16 << 10
	healthPingTimeout = 2 * time.Second
)

// Pinger はデータベースの疎通確認インターフェース。*sql.DBが満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SiteHandler は年齢確認・分析ビーコン・ヘルスチェックのHTTPハンドラー。
type SiteHandler struct {
	tracker       analytics.Tracker
	db            Pinger
	version       string
	secureCookies bool
}

// NewSiteHandler はSiteHandlerを生成する。dbがnilの場合はDBの疎通確認を行わない。
func NewSiteHandler(tracker analytics.Tracker, db Pinger, version string, secureCookies bool) *SiteHandler {
	if tracker == nil {
		tracker = analytics.Nop{}
	}
	return &SiteHandler{
		tracker:       tracker,
		db:            db,
		version:       version,
		secureCookies: secureCookies,
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// VerifyAge は年齢確認Cookieを設定する。
// POST /api/age/verify
func (h *SiteHandler) VerifyAge(w http.ResponseWriter, r *http.Request) {
	middleware.SetAgeCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// ResetAge は年齢確認Cookieを削除する。
// DELETE /api/age/verify
func (h *SiteHandler) ResetAge(w http.ResponseWriter, r *http.Request) {
	middleware.ClearAgeCookie(w, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// Beacon は分析イベントを受け付ける。検証や配送の結果に関わらず常に202を返す。
// POST /api/analytics
func (h *SiteHandler) Beacon(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusAccepted)

	var b analytics.Beacon
	body := http.MaxBytesReader(w, r.Body, maxBeaconBodySize)
	if err := json.NewDecoder(body).Decode(&b); err != nil {
		if err != io.EOF {
			slog.Debug("invalid analytics beacon", slog.String("error", err.Error()))
		}
		return
	}

	event, ok := b.ToEvent(middleware.VisitorIDFromContext(r.Context()))
	if !ok {
		return
	}
	// リクエスト終了後も配送できるようにキャンセルを切り離す
	h.tracker.Track(context.WithoutCancel(r.Context()), event)
}

// Health はサービスの稼働状態を返す。DBに接続できない場合は503を返す。
// GET /health
func (h *SiteHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "online", Version: h.version, Database: "ok"}
	if h.db == nil {
		resp.Database = "disabled"
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		slog.Warn("health check database ping failed", slog.String("error", err.Error()))
		resp.Status = "degraded"
		resp.Database = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
