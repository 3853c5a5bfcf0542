package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/portalx/internal/model"
	"github.com/hitoshi/portalx/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn     func(ctx context.Context, id int64) (*model.User, error)
	findByEmailFn  func(ctx context.Context, email string) (*model.User, error)
	createFn       func(ctx context.Context, user *model.User) error
	ensureAdminFn  func(ctx context.Context, user *model.User) (bool, error)
	listFn         func(ctx context.Context) ([]*model.User, error)
	updateStatusFn func(ctx context.Context, id int64, status model.UserStatus) error
	deleteByIDFn   func(ctx context.Context, id int64) error

	createCalls int
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockUserRepo) EnsureAdmin(ctx context.Context, user *model.User) (bool, error) {
	if m.ensureAdminFn != nil {
		return m.ensureAdminFn(ctx, user)
	}
	return true, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateStatus(ctx context.Context, id int64, status model.UserStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id int64) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

// --- ヘルパー ---

func newTestService(t *testing.T, repo repository.UserRepository, cfg ServiceConfig) (*Service, *bytes.Buffer) {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{Secret: "test-secret", Issuer: "portalx", TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	cfg.BcryptCost = bcrypt.MinCost
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewService(repo, issuer, cfg, logger), &buf
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが返されるべき: %v", err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	var saved *model.User
	repo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			user.ID = 7
			saved = user
			return nil
		},
	}
	svc, _ := newTestService(t, repo, ServiceConfig{})

	res, err := svc.Register(context.Background(), RegisterInput{
		Name:                 "  Ana Souza ",
		Email:                " Ana@Example.com ",
		Password:             "segredo1",
		PasswordConfirmation: "segredo1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if saved.Email != "ana@example.com" || saved.Name != "Ana Souza" {
		t.Errorf("正規化されていない: %+v", saved)
	}
	if saved.Status != model.UserStatusPending || saved.Role != model.RoleUser {
		t.Errorf("初期状態が不正: status=%q role=%q", saved.Status, saved.Role)
	}
	if bcrypt.CompareHashAndPassword([]byte(saved.PasswordHash), []byte("segredo1")) != nil {
		t.Error("パスワードがbcryptでハッシュ化されていない")
	}
	if res.Token == "" || res.User.ID != 7 {
		t.Errorf("Result = %+v", res)
	}

	claims, err := svc.Authenticate(res.Token)
	if err != nil || claims.UserID != 7 {
		t.Errorf("発行したトークンが検証できない: %+v, %v", claims, err)
	}
}

func TestRegister_AutoApprove(t *testing.T) {
	var saved *model.User
	repo := &mockUserRepo{createFn: func(_ context.Context, u *model.User) error { saved = u; u.ID = 1; return nil }}
	svc, _ := newTestService(t, repo, ServiceConfig{AutoApprove: true})

	if _, err := svc.Register(context.Background(), RegisterInput{Name: "Bia", Email: "bia@example.com", Password: "123456"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if saved.Status != model.UserStatusApproved {
		t.Errorf("Status = %q, want approved", saved.Status)
	}
}

func TestRegister_ValidationNeverReachesRepository(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterInput
		code string
	}{
		{"全項目空", RegisterInput{}, model.ErrCodeMissingFields},
		{"名前なし", RegisterInput{Email: "a@b.com", Password: "123456"}, model.ErrCodeMissingFields},
		{"短い名前", RegisterInput{Name: "A", Email: "a@b.com", Password: "123456"}, model.ErrCodeInvalidName},
		{"不正なメール", RegisterInput{Name: "Ana", Email: "ana-at-example", Password: "123456"}, model.ErrCodeInvalidEmail},
		{"ドメインにドットなし", RegisterInput{Name: "Ana", Email: "ana@localhost", Password: "123456"}, model.ErrCodeInvalidEmail},
		{"表示名付き", RegisterInput{Name: "Ana", Email: "Ana <ana@example.com>", Password: "123456"}, model.ErrCodeInvalidEmail},
		{"短いパスワード", RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "12345"}, model.ErrCodeWeakPassword},
		{"長すぎるパスワード", RegisterInput{Name: "Ana", Email: "ana@example.com", Password: strings.Repeat("x", 73)}, model.ErrCodeWeakPassword},
		{"確認不一致", RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "123456", PasswordConfirmation: "654321"}, model.ErrCodePasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUserRepo{}
			svc, _ := newTestService(t, repo, ServiceConfig{})

			_, err := svc.Register(context.Background(), tt.in)
			assertAPIErrorCode(t, err, tt.code)
			if repo.createCalls != 0 {
				t.Error("検証エラー時にリポジトリが呼ばれてはいけない")
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{createFn: func(context.Context, *model.User) error { return repository.ErrDuplicate }}
	svc, _ := newTestService(t, repo, ServiceConfig{})

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "123456"})
	assertAPIErrorCode(t, err, model.ErrCodeEmailTaken)
}

func TestRegister_RepositoryFailureIsInternal(t *testing.T) {
	repo := &mockUserRepo{createFn: func(context.Context, *model.User) error { return errors.New("connection reset") }}
	svc, _ := newTestService(t, repo, ServiceConfig{})

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "123456"})
	var apiErr *model.APIError
	if err == nil || errors.As(err, &apiErr) {
		t.Errorf("内部エラーはAPIErrorではなく通常のエラーで返すべき: %v", err)
	}
}

// --- Login / AdminLogin ---

func usersByEmail(users ...*model.User) *mockUserRepo {
	return &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			for _, u := range users {
				if strings.EqualFold(u.Email, email) {
					return u, nil
				}
			}
			return nil, nil
		},
	}
}

func TestLogin(t *testing.T) {
	hash := hashFor(t, "segredo1")
	approved := &model.User{ID: 1, Email: "ana@example.com", PasswordHash: hash, Role: model.RoleUser, Status: model.UserStatusApproved}
	pending := &model.User{ID: 2, Email: "bia@example.com", PasswordHash: hash, Role: model.RoleUser, Status: model.UserStatusPending}
	rejected := &model.User{ID: 3, Email: "caio@example.com", PasswordHash: hash, Role: model.RoleUser, Status: model.UserStatusRejected}
	svc, _ := newTestService(t, usersByEmail(approved, pending, rejected), ServiceConfig{})
	ctx := context.Background()

	t.Run("承認済み", func(t *testing.T) {
		res, err := svc.Login(ctx, "ana@example.com", "segredo1")
		if err != nil || res.User.ID != 1 {
			t.Fatalf("Login = %+v, %v", res, err)
		}
	})

	t.Run("承認待ちもログインできる", func(t *testing.T) {
		if _, err := svc.Login(ctx, "bia@example.com", "segredo1"); err != nil {
			t.Errorf("Login: %v", err)
		}
	})

	t.Run("拒否されたユーザー", func(t *testing.T) {
		_, err := svc.Login(ctx, "caio@example.com", "segredo1")
		assertAPIErrorCode(t, err, model.ErrCodeUserRejected)
	})

	t.Run("パスワード違い", func(t *testing.T) {
		_, err := svc.Login(ctx, "ana@example.com", "errada")
		assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
	})

	t.Run("未登録", func(t *testing.T) {
		_, err := svc.Login(ctx, "ninguem@example.com", "segredo1")
		assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
	})

	t.Run("入力なし", func(t *testing.T) {
		_, err := svc.Login(ctx, " ", "")
		assertAPIErrorCode(t, err, model.ErrCodeMissingFields)
	})
}

func TestAdminLogin(t *testing.T) {
	hash := hashFor(t, "Admin@2024!")
	admin := &model.User{ID: 1, Email: "admin@portalx.example", PasswordHash: hash, Role: model.RoleAdmin, Status: model.UserStatusApproved}
	user := &model.User{ID: 2, Email: "ana@example.com", PasswordHash: hash, Role: model.RoleUser, Status: model.UserStatusApproved}
	svc, _ := newTestService(t, usersByEmail(admin, user), ServiceConfig{})
	ctx := context.Background()

	res, err := svc.AdminLogin(ctx, "admin@portalx.example", "Admin@2024!")
	if err != nil {
		t.Fatalf("AdminLogin: %v", err)
	}
	claims, err := svc.Authenticate(res.Token)
	if err != nil || claims.Role != model.RoleAdmin {
		t.Errorf("管理者のトークンにroleが含まれない: %+v, %v", claims, err)
	}

	_, err = svc.AdminLogin(ctx, "ana@example.com", "Admin@2024!")
	assertAPIErrorCode(t, err, model.ErrCodeAdminDenied)

	_, err = svc.AdminLogin(ctx, "admin@portalx.example", "errada")
	assertAPIErrorCode(t, err, model.ErrCodeAdminDenied)
}

func TestAuthenticate_Errors(t *testing.T) {
	svc, _ := newTestService(t, &mockUserRepo{}, ServiceConfig{})

	_, err := svc.Authenticate("")
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorized)

	_, err = svc.Authenticate("garbage")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidToken)
}

// --- SeedAdmin ---

func TestSeedAdmin(t *testing.T) {
	var seeded *model.User
	repo := &mockUserRepo{ensureAdminFn: func(_ context.Context, u *model.User) (bool, error) {
		seeded = u
		return true, nil
	}}
	svc, logs := newTestService(t, repo, ServiceConfig{})

	if err := svc.SeedAdmin(context.Background(), "", "Admin@PortalX.example", "Admin@2024!"); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	if seeded.Email != "admin@portalx.example" || seeded.Name != "Admin" {
		t.Errorf("seeded = %+v", seeded)
	}
	if bcrypt.CompareHashAndPassword([]byte(seeded.PasswordHash), []byte("Admin@2024!")) != nil {
		t.Error("管理者パスワードがハッシュ化されていない")
	}
	if !strings.Contains(logs.String(), "admin user created") {
		t.Errorf("作成ログが出力されていない: %s", logs.String())
	}
}

func TestSeedAdmin_SkipsWithoutCredentials(t *testing.T) {
	repo := &mockUserRepo{ensureAdminFn: func(context.Context, *model.User) (bool, error) {
		t.Fatal("資格情報が無い場合はリポジトリを呼ばない")
		return false, nil
	}}
	svc, _ := newTestService(t, repo, ServiceConfig{})

	if err := svc.SeedAdmin(context.Background(), "Admin", "", ""); err != nil {
		t.Errorf("SeedAdmin: %v", err)
	}
}
