package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/portalx/internal/model"
)

func newTestIssuer(t *testing.T, now time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{Secret: "test-secret", Issuer: "portalx", TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	issuer.now = func() time.Time { return now }
	return issuer
}

var testUser = &model.User{ID: 42, Email: "ana@example.com", Role: model.RoleAdmin}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer(TokenConfig{}); err == nil {
		t.Error("シークレットが空の場合はエラーになるべき")
	}
}

func TestTokenIssuer_IssueAndValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, now)

	token, expiresAt, err := issuer.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, now.Add(time.Hour))
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := model.Claims{UserID: 42, Email: "ana@example.com", Role: model.RoleAdmin}
	if *claims != want {
		t.Errorf("claims = %+v, want %+v", *claims, want)
	}
}

func TestTokenIssuer_Validate_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, now)

	token, _, err := issuer.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	issuer.now = func() time.Time { return now.Add(time.Hour + time.Minute) }
	if _, err := issuer.Validate(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Validate = %v, want ErrTokenExpired", err)
	}

	// 許容誤差内であれば有効
	issuer.now = func() time.Time { return now.Add(time.Hour + 2*time.Second) }
	if _, err := issuer.Validate(token); err != nil {
		t.Errorf("許容誤差内のトークンは有効であるべき: %v", err)
	}
}

func TestTokenIssuer_Validate_Rejects(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(t, now)

	other, err := NewTokenIssuer(TokenConfig{Secret: "other-secret", Issuer: "portalx", TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	foreignSecret, _, _ := other.Issue(testUser)

	otherIssuer, _ := NewTokenIssuer(TokenConfig{Secret: "test-secret", Issuer: "someone-else", TTL: time.Hour})
	foreignIssuer, _, _ := otherIssuer.Issue(testUser)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, tokenClaims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "portalx",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("HS512トークンの署名に失敗: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID:           42,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "portalx"},
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("署名に失敗: %v", err)
	}

	tests := map[string]string{
		"空":        "",
		"不正な形式":    "not.a.jwt",
		"別のシークレット": foreignSecret,
		"別の発行者":    foreignIssuer,
		"HS512":    hs512,
		"期限なし":     noExpiry,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := issuer.Validate(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate = %v, want ErrInvalidToken", err)
			}
		})
	}
}
