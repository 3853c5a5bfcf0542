package security

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/idna"
)

// LinkKind はチャンネルリンクの種類。
type LinkKind string

const (
	LinkTelegram LinkKind = "telegram"
	LinkWhatsApp LinkKind = "whatsapp"
)

var linkHosts = map[LinkKind][]string{
	LinkTelegram: {"t.me", "telegram.me", "telegram.dog"},
	LinkWhatsApp: {"chat.whatsapp.com", "wa.me", "whatsapp.com", "api.whatsapp.com"},
}

// ErrInvalidLink はリンクが受け付けられない形式であることを示す。
var ErrInvalidLink = errors.New("invalid link")

// NormalizeLink はチャンネルリンクを検証し、正規化したURLを返す。
// httpsのみ許可し、ホストはIDNAでASCII化・小文字化した上で種類ごとの許可リストと照合する。
// 認証情報付きURLとパスの無いURLは拒否する。
func NormalizeLink(kind LinkKind, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidLink)
	}
	allowed, ok := linkHosts[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown link kind %q", ErrInvalidLink, kind)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return "", fmt.Errorf("%w: scheme must be https", ErrInvalidLink)
	}
	if u.User != nil {
		return "", fmt.Errorf("%w: credentials are not allowed", ErrInvalidLink)
	}
	if u.Port() != "" && u.Port() != "443" {
		return "", fmt.Errorf("%w: port %s is not allowed", ErrInvalidLink, u.Port())
	}

	host, err := idna.Lookup.ToASCII(strings.TrimSuffix(u.Hostname(), "."))
	if err != nil {
		return "", fmt.Errorf("%w: host: %v", ErrInvalidLink, err)
	}
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	if !slices.Contains(allowed, host) {
		return "", fmt.Errorf("%w: host %s is not a %s host", ErrInvalidLink, host, kind)
	}
	if strings.Trim(u.EscapedPath(), "/") == "" {
		return "", fmt.Errorf("%w: missing path", ErrInvalidLink)
	}

	normalized := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     u.Path,
		RawPath:  u.RawPath,
		RawQuery: u.RawQuery,
	}
	return normalized.String(), nil
}
