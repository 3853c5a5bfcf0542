package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/portalx/internal/model"
	"github.com/hitoshi/portalx/internal/repository"
)

const (
	defaultSummaryDays = 7
	maxSummaryDays     = 90
)

// AdminUserServiceInterface はユーザーのモデレーションに必要なサービスインターフェース。
type AdminUserServiceInterface interface {
	List(ctx context.Context) ([]*model.User, error)
	Approve(ctx context.Context, adminID, userID int64) error
	Reject(ctx context.Context, adminID, userID int64) error
}

// AdminChannelServiceInterface はチャンネルのモデレーションに必要なサービスインターフェース。
type AdminChannelServiceInterface interface {
	ListByStatus(ctx context.Context, status model.ChannelStatus) ([]*model.Channel, error)
	SetStatus(ctx context.Context, adminID, id int64, status model.ChannelStatus) error
}

// AnalyticsSummarizer は分析イベントの集計インターフェース。
type AnalyticsSummarizer interface {
	CountSince(ctx context.Context, since time.Time) ([]repository.EventCount, error)
}

// AdminHandler は管理者向けのHTTPハンドラー。
type AdminHandler struct {
	users     AdminUserServiceInterface
	channels  AdminChannelServiceInterface
	analytics AnalyticsSummarizer
	now       func() time.Time
}

// NewAdminHandler はAdminHandlerを生成する。analyticsはnilでもよい。
func NewAdminHandler(users AdminUserServiceInterface, channels AdminChannelServiceInterface, analytics AnalyticsSummarizer) *AdminHandler {
	return &AdminHandler{
		users:     users,
		channels:  channels,
		analytics: analytics,
		now:       time.Now,
	}
}

type eventCountResponse struct {
	Event string `json:"event"`
	Count int64  `json:"count"`
}

type analyticsSummaryResponse struct {
	Days   int                  `json:"days"`
	Since  time.Time            `json:"since"`
	Events []eventCountResponse `json:"events"`
}

// ListUsers は全ユーザーを返す。
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ApproveUser はユーザーを承認する。
// POST /api/admin/users/{id}/approve
func (h *AdminHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	h.moderateUser(w, r, h.users.Approve)
}

// RejectUser はユーザーを拒否する。
// POST /api/admin/users/{id}/reject
func (h *AdminHandler) RejectUser(w http.ResponseWriter, r *http.Request) {
	h.moderateUser(w, r, h.users.Reject)
}

func (h *AdminHandler) moderateUser(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, adminID, userID int64) error) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, func(int64) *model.APIError { return model.NewUserNotFoundError() })
	if !ok {
		return
	}

	if err := apply(r.Context(), claims.UserID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListChannels は指定状態のチャンネルを返す。statusの既定値はpending。
// GET /api/admin/channels?status=
func (h *AdminHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	status := model.ChannelStatusPending
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status = model.ChannelStatus(strings.ToLower(raw))
	}

	channels, err := h.channels.ListByStatus(r.Context(), status)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChannelResponses(channels, true))
}

// ApproveChannel はチャンネルを公開する。
// POST /api/admin/channels/{id}/approve
func (h *AdminHandler) ApproveChannel(w http.ResponseWriter, r *http.Request) {
	h.moderateChannel(w, r, model.ChannelStatusActive)
}

// RejectChannel はチャンネルを非公開にする。
// POST /api/admin/channels/{id}/reject
func (h *AdminHandler) RejectChannel(w http.ResponseWriter, r *http.Request) {
	h.moderateChannel(w, r, model.ChannelStatusRejected)
}

func (h *AdminHandler) moderateChannel(w http.ResponseWriter, r *http.Request, status model.ChannelStatus) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewChannelNotFoundError)
	if !ok {
		return
	}

	if err := h.channels.SetStatus(r.Context(), claims.UserID, id, status); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AnalyticsSummary は直近days日間のイベント件数をイベント名ごとに返す。
// GET /api/admin/analytics?days=7
func (h *AdminHandler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		writeJSON(w, http.StatusOK, analyticsSummaryResponse{Days: 0, Events: []eventCountResponse{}})
		return
	}

	days := defaultSummaryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSummaryDays {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFilterError("days="+raw))
			return
		}
		days = n
	}

	since := h.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	counts, err := h.analytics.CountSince(r.Context(), since)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	events := make([]eventCountResponse, len(counts))
	for i, c := range counts {
		events[i] = eventCountResponse{Event: c.Name, Count: c.Count}
	}
	writeJSON(w, http.StatusOK, analyticsSummaryResponse{Days: days, Since: since, Events: events})
}
