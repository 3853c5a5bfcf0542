package security

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー投稿のテキスト（チャンネル名、説明、都市名）からHTMLを除去する。
type TextSanitizer interface {
	// Sanitize は全てのタグを取り除き、連続する空白を1つにまとめ、
	// maxRunes文字で切り詰めたHTML安全な文字列を返す。maxRunes <= 0 は無制限。
	Sanitize(raw string, maxRunes int) string
}

// textSanitizer はbluemondayのStrictPolicyによるTextSanitizerの実装。
// bluemondayのPolicyは並行利用できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はrawからHTMLを除去する。
func (s *textSanitizer) Sanitize(raw string, maxRunes int) string {
	clean := s.policy.Sanitize(raw)
	clean = strings.Join(strings.Fields(clean), " ")
	if maxRunes > 0 && utf8.RuneCountInString(clean) > maxRunes {
		clean = strings.TrimSpace(string([]rune(clean)[:maxRunes]))
	}
	return clean
}
