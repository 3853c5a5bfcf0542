package access

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoNavigationContext はリクエストにリダイレクト先の受け取り口が無いことを示す。
var ErrNoNavigationContext = errors.New("遷移先を受け取るコンテキストがありません")

type redirectKey struct{}

// Redirect はリクエスト処理中に決まった外部遷移先を保持する。
type Redirect struct {
	Link string
}

// WithRedirect はリダイレクト先の受け取り口をコンテキストに設定する。
func WithRedirect(ctx context.Context) (context.Context, *Redirect) {
	r := &Redirect{}
	return context.WithValue(ctx, redirectKey{}, r), r
}

// RedirectNavigator は遷移先をリクエストのRedirectに書き込む。
// 実際の遷移はレスポンスを受け取ったブラウザが新しいタブで行う。
type RedirectNavigator struct{}

// Open はlinkを検証し、コンテキストのRedirectに設定する。
func (RedirectNavigator) Open(ctx context.Context, link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("遷移先URLの解析に失敗しました: %w", err)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "https" && scheme != "http" {
		return fmt.Errorf("許可されていないスキームです: %q", u.Scheme)
	}
	r, ok := ctx.Value(redirectKey{}).(*Redirect)
	if !ok {
		return ErrNoNavigationContext
	}
	r.Link = link
	return nil
}
