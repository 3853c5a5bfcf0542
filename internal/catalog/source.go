package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/portalx/internal/model"
)

// ErrMalformedPayload はレスポンスがListingのJSON配列として解釈できないことを示す。
var ErrMalformedPayload = errors.New("カタログデータの形式が不正です")

// StatusError はデータ取得元が2xx以外を返したことを示す。
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("カタログデータ取得元がステータス %d を返しました", e.StatusCode)
}

// HTTPClientFactory はSSRF防止付きHTTPクライアントの生成元。
type HTTPClientFactory interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// HTTPSource はHTTPエンドポイントからListingのJSON配列を取得する。
// リクエストパラメータは付与せず、全件を一括で受け取る。
type HTTPSource struct {
	endpoint    string
	httpClient  *http.Client
	guard       HTTPClientFactory
	timeout     time.Duration
	maxBodySize int64
	logger      *slog.Logger
}

// NewHTTPSource はHTTPSourceの新しいインスタンスを生成する。
func NewHTTPSource(endpoint string, guard HTTPClientFactory, timeout time.Duration, maxBodySize int64, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		endpoint:    endpoint,
		httpClient:  guard.NewSafeClient(timeout, maxBodySize),
		guard:       guard,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Fetch はエンドポイントからListingを取得する。
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Listing, error) {
	if err := s.guard.ValidateURL(s.endpoint); err != nil {
		return nil, fmt.Errorf("カタログデータURLの検証に失敗: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "PortalX/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("カタログデータの取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if int64(len(body)) > s.maxBodySize {
		return nil, fmt.Errorf("%w: レスポンスサイズが上限 %d バイトを超えています", ErrMalformedPayload, s.maxBodySize)
	}

	return DecodeListings(body)
}

// DecodeListings はJSON配列をListingのスライスにデコードする。
// 配列以外やnullは不正な形式として扱う。
func DecodeListings(body []byte) ([]model.Listing, error) {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, ErrMalformedPayload
	}
	var listings []model.Listing
	if err := json.Unmarshal([]byte(trimmed), &listings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return listings, nil
}

// ActiveChannelLister は公開中チャンネルの取得インターフェース。
type ActiveChannelLister interface {
	ListByStatus(ctx context.Context, status model.ChannelStatus) ([]*model.Channel, error)
}

// ChannelSource は公開中のチャンネルをListingとして提供する。
type ChannelSource struct {
	channels  ActiveChannelLister
	newWindow time.Duration
	now       func() time.Time
}

// NewChannelSource はChannelSourceの新しいインスタンスを生成する。
// 作成からnewWindow以内のチャンネルを新着として扱う。
func NewChannelSource(channels ActiveChannelLister, newWindow time.Duration) *ChannelSource {
	return &ChannelSource{
		channels:  channels,
		newWindow: newWindow,
		now:       time.Now,
	}
}

// Fetch は公開中チャンネルをListingに変換して返す。
func (s *ChannelSource) Fetch(ctx context.Context) ([]model.Listing, error) {
	channels, err := s.channels.ListByStatus(ctx, model.ChannelStatusActive)
	if err != nil {
		return nil, fmt.Errorf("公開中チャンネルの取得に失敗しました: %w", err)
	}
	now := s.now()
	listings := make([]model.Listing, 0, len(channels))
	for _, ch := range channels {
		listings = append(listings, ch.ToListing(now, s.newWindow))
	}
	return listings, nil
}

// webLink はリンクがホスト付きのhttp(s) URLかを返す。
func webLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "https" || scheme == "http"
}

// Normalize は取得元の境界でレコードを検証・正規化する。
// 名前が空、リンクがhttp(s)でない、IDが正でない、IDが重複するレコードは除外し、
// 負のviewsは0に丸める。除外件数を併せて返す。
func Normalize(records []model.Listing) ([]model.Listing, int) {
	seen := make(map[int64]struct{}, len(records))
	valid := make([]model.Listing, 0, len(records))
	rejected := 0
	for _, r := range records {
		r.Name = strings.TrimSpace(r.Name)
		r.Link = strings.TrimSpace(r.Link)
		r.Category = model.Category(strings.ToLower(strings.TrimSpace(string(r.Category))))
		r.State = strings.ToUpper(strings.TrimSpace(r.State))
		r.City = strings.TrimSpace(r.City)

		if r.ID <= 0 || r.Name == "" || !webLink(r.Link) {
			rejected++
			continue
		}
		if _, dup := seen[r.ID]; dup {
			rejected++
			continue
		}
		seen[r.ID] = struct{}{}
		if r.Views < 0 {
			r.Views = 0
		}
		valid = append(valid, r)
	}
	return valid, rejected
}
