package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/portalx/internal/model"
	"github.com/hitoshi/portalx/internal/storage"
)

const (
	// multipartMemory はマルチパートの解析でメモリに保持する上限。超えた分は一時ファイルに書き出される。
	multipartMemory = 1 << 20
	// multipartOverhead は画像以外のフォーム項目とパート境界に許容するバイト数。
	multipartOverhead = 64 << 10
	imageFormField    = "image"
)

// ChannelServiceInterface はチャンネルハンドラーが必要とするサービスインターフェース。
type ChannelServiceInterface interface {
	Create(ctx context.Context, claims *model.Claims, in model.ChannelInput, image *storage.Image) (*model.Channel, error)
	Update(ctx context.Context, claims *model.Claims, id int64, in model.ChannelInput, image *storage.Image) (*model.Channel, error)
	Delete(ctx context.Context, claims *model.Claims, id int64) error
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.Channel, error)
	ListActive(ctx context.Context) ([]*model.Channel, error)
	ListActiveByCategory(ctx context.Context, category string) ([]*model.Channel, error)
}

// ChannelHandlerConfig はチャンネルハンドラーの設定。
type ChannelHandlerConfig struct {
	// MaxImageSize はアップロード画像の最大バイト数。0以下なら storage.DefaultMaxImageSize。
	MaxImageSize int64
}

// ChannelHandler はチャンネル管理のHTTPハンドラー。
type ChannelHandler struct {
	service ChannelServiceInterface
	config  ChannelHandlerConfig
}

// NewChannelHandler はChannelHandlerを生成する。
func NewChannelHandler(service ChannelServiceInterface, config ChannelHandlerConfig) *ChannelHandler {
	if config.MaxImageSize <= 0 {
		config.MaxImageSize = storage.DefaultMaxImageSize
	}
	return &ChannelHandler{service: service, config: config}
}

// channelRequest はJSONでのチャンネル作成/更新リクエストのボディ。
// 省略した項目は更新時に変更しない。
type channelRequest struct {
	Name         *string `json:"name"`
	TelegramLink *string `json:"telegram_link"`
	WhatsAppLink *string `json:"whatsapp_link"`
	Category     *string `json:"category"`
	State        *string `json:"state"`
	City         *string `json:"city"`
	Description  *string `json:"description"`
}

// channelResponse はチャンネル情報のAPIレスポンス。
type channelResponse struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"owner_id,omitempty"`
	Name         string    `json:"name"`
	TelegramLink string    `json:"telegram_link,omitempty"`
	WhatsAppLink string    `json:"whatsapp_link,omitempty"`
	Category     string    `json:"category"`
	State        string    `json:"state,omitempty"`
	City         string    `json:"city,omitempty"`
	Description  string    `json:"description,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	Views        int64     `json:"views"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type createChannelResponse struct {
	Message   string          `json:"message"`
	ChannelID int64           `json:"channelId"`
	Channel   channelResponse `json:"channel"`
}

// ListMine はログイン中ユーザーのチャンネル一覧を返す。
// GET /api/channels/user
func (h *ChannelHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	channels, err := h.service.ListByOwner(r.Context(), claims.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChannelResponses(channels, true))
}

// Create はチャンネルを登録する。multipart/form-data の場合は image パートを画像として扱う。
// POST /api/channels
func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	in, image, ok := h.parseChannelRequest(w, r)
	if !ok {
		return
	}

	ch, err := h.service.Create(r.Context(), claims, in, image)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createChannelResponse{
		Message:   "Canal cadastrado com sucesso!",
		ChannelID: ch.ID,
		Channel:   toChannelResponse(ch, true),
	})
}

// Update はチャンネルを編集する。
// PUT /api/channels/{id}
func (h *ChannelHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewChannelNotFoundError)
	if !ok {
		return
	}

	in, image, ok := h.parseChannelRequest(w, r)
	if !ok {
		return
	}

	ch, err := h.service.Update(r.Context(), claims, id, in, image)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChannelResponse(ch, true))
}

// Delete はチャンネルを削除する。
// DELETE /api/channels/{id}
func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewChannelNotFoundError)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), claims, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAll は公開中のチャンネルを閲覧数の多い順で返す。
// GET /api/channels/all
func (h *ChannelHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	channels, err := h.service.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChannelResponses(channels, false))
}

// ListByCategory は指定カテゴリの公開中チャンネルを返す。
// GET /api/channels/category/{category}
func (h *ChannelHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	channels, err := h.service.ListActiveByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChannelResponses(channels, false))
}

// parseChannelRequest はJSONまたはマルチパートのリクエストから入力値と画像を取り出す。
// 失敗した場合はエラーレスポンスを書き込んでfalseを返す。
func (h *ChannelHandler) parseChannelRequest(w http.ResponseWriter, r *http.Request) (model.ChannelInput, *storage.Image, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req channelRequest
		if !decodeJSON(w, r, &req) {
			return model.ChannelInput{}, nil, false
		}
		return model.ChannelInput{
			Name:         req.Name,
			TelegramLink: req.TelegramLink,
			WhatsAppLink: req.WhatsAppLink,
			Category:     req.Category,
			State:        req.State,
			City:         req.City,
			Description:  req.Description,
		}, nil, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxImageSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeImageTooLarge(w)
		} else {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		}
		return model.ChannelInput{}, nil, false
	}
	defer r.MultipartForm.RemoveAll()

	form := r.MultipartForm
	in := model.ChannelInput{
		Name:         formValue(form, "name"),
		TelegramLink: formValue(form, "telegram_link"),
		WhatsAppLink: formValue(form, "whatsapp_link"),
		Category:     formValue(form, "category"),
		State:        formValue(form, "state"),
		City:         formValue(form, "city"),
		Description:  formValue(form, "description"),
	}

	files := form.File[imageFormField]
	if len(files) == 0 {
		return in, nil, true
	}
	image, err := h.readImage(files[0])
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			h.writeImageTooLarge(w)
		case errors.Is(err, storage.ErrUnsupportedType):
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageError("formato não permitido"))
		case errors.Is(err, storage.ErrEmpty):
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageError("arquivo vazio"))
		default:
			slog.Error("failed to read uploaded image", slog.String("error", err.Error()))
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageError("não foi possível ler o arquivo"))
		}
		return model.ChannelInput{}, nil, false
	}
	return in, image, true
}

func (h *ChannelHandler) readImage(fh *multipart.FileHeader) (*storage.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()
	return storage.ReadImage(f, fh.Filename, h.config.MaxImageSize)
}

func (h *ChannelHandler) writeImageTooLarge(w http.ResponseWriter) {
	reason := fmt.Sprintf("tamanho máximo de %dMB excedido", h.config.MaxImageSize>>20)
	writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewInvalidImageError(reason))
}

// formValue はフォームに項目が存在する場合だけ値へのポインタを返す。
func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// toChannelResponse はmodel.ChannelからAPIレスポンスに変換する。
// 公開一覧では所有者IDを含めない。
func toChannelResponse(ch *model.Channel, includeOwner bool) channelResponse {
	resp := channelResponse{
		ID:           ch.ID,
		Name:         ch.Name,
		TelegramLink: ch.TelegramLink,
		WhatsAppLink: ch.WhatsAppLink,
		Category:     string(ch.Category),
		State:        ch.State,
		City:         ch.City,
		Description:  ch.Description,
		ImageURL:     ch.ImageURL,
		Views:        ch.Views,
		Status:       string(ch.Status),
		CreatedAt:    ch.CreatedAt,
	}
	if includeOwner {
		resp.OwnerID = ch.OwnerID
	}
	return resp
}

func toChannelResponses(channels []*model.Channel, includeOwner bool) []channelResponse {
	resp := make([]channelResponse, len(channels))
	for i, ch := range channels {
		resp[i] = toChannelResponse(ch, includeOwner)
	}
	return resp
}
