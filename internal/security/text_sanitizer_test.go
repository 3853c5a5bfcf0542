package security

import "testing"

func TestTextSanitizer_Sanitize(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name     string
		in       string
		maxRunes int
		want     string
	}{
		{"プレーンテキスト", "Grupo Secreto Santos", 0, "Grupo Secreto Santos"},
		{"空", "", 0, ""},
		{"タグ除去", "<b>Flagras</b> de <i>Recife</i>", 0, "Flagras de Recife"},
		{"script除去", `Canal<script>alert("x")</script>`, 0, "Canal"},
		{"イベント属性", `<img src=x onerror=alert(1)>Vazados`, 0, "Vazados"},
		{"空白の正規化", "  Grupo \n\t VIP  ", 0, "Grupo VIP"},
		{"切り詰め", "Universitárias de São Paulo", 13, "Universitária"},
		{"切り詰め後の末尾空白", "abc def", 4, "abc"},
		{"アンパサンドはエスケープ", "Cornos & Amadoras", 0, "Cornos &amp; Amadoras"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.in, tt.maxRunes); got != tt.want {
				t.Errorf("Sanitize(%q, %d) = %q, want %q", tt.in, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestTextSanitizer_Idempotent(t *testing.T) {
	s := NewTextSanitizer()

	once := s.Sanitize("<p>Grupo <em>VIP</em> 18+</p>", 0)
	if twice := s.Sanitize(once, 0); twice != once {
		t.Errorf("2回目のサニタイズで結果が変化した: %q -> %q", once, twice)
	}
}

func TestTextSanitizer_ImplementsInterface(t *testing.T) {
	var _ TextSanitizer = NewTextSanitizer()
}
