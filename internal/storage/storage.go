// Package storage はチャンネル画像の保存先を提供する。
// ローカルディスク（/uploads で配信）とMinIO/S3互換ストレージの2つの実装がある。
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxImageSize はアップロード画像の最大サイズ（5MB）。
const DefaultMaxImageSize int64 = 5 << 20

var (
	// ErrTooLarge は画像が最大サイズを超えていることを示す。
	ErrTooLarge = errors.New("storage: image too large")
	// ErrUnsupportedType は許可されていない画像形式であることを示す。
	ErrUnsupportedType = errors.New("storage: unsupported image type")
	// ErrEmpty は画像が空であることを示す。
	ErrEmpty = errors.New("storage: empty image")
)

// 許可する拡張子と、内容から判定したContent-Typeの対応。
var allowedTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// canonicalExt はContent-Typeごとの保存時の拡張子。
var canonicalExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image は検証済みの画像。
type Image struct {
	ContentType string
	Data        []byte
}

// Ext は保存時の拡張子を返す。
func (img *Image) Ext() string {
	return canonicalExt[img.ContentType]
}

// Size は画像のバイト数を返す。
func (img *Image) Size() int64 {
	return int64(len(img.Data))
}

// ReadImage はrからmaxSizeバイトまで読み込み、拡張子と内容の両方が許可された画像形式かを検証する。
// maxSize <= 0 の場合はDefaultMaxImageSizeを使う。
func ReadImage(r io.Reader, filename string, maxSize int64) (*Image, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	ext := strings.ToLower(path.Ext(filename))
	declared, ok := allowedTypes[ext]
	if !ok {
		return nil, ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > maxSize {
		return nil, ErrTooLarge
	}

	sniffed := http.DetectContentType(data)
	if sniffed != declared {
		return nil, ErrUnsupportedType
	}
	return &Image{ContentType: sniffed, Data: data}, nil
}

// ImageStore は画像の保存先。
type ImageStore interface {
	// Put は画像を保存し、公開URLを返す。
	Put(ctx context.Context, img *Image) (string, error)
	// Delete はPutが返したURLの画像を削除する。このストアの管理外のURLは無視する。
	Delete(ctx context.Context, url string) error
}

// newKey は保存用のオブジェクトキーを生成する。
func newKey(img *Image) string {
	return "channels/" + uuid.NewString() + img.Ext()
}

func (img *Image) reader() io.Reader {
	return bytes.NewReader(img.Data)
}
