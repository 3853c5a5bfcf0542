package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/hitoshi/portalx/internal/database"
	"github.com/hitoshi/portalx/internal/model"
)

func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ ChannelRepository = (*PostgresChannelRepo)(nil)
	var _ AnalyticsRepository = (*PostgresAnalyticsRepo)(nil)
}

func TestNullString(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Error("空文字列はNULLになるべき")
	}
	if ns := nullString("SP"); !ns.Valid || ns.String != "SP" {
		t.Errorf("nullString(SP) = %+v", ns)
	}
	if v := nullStringValue(sql.NullString{}); v != "" {
		t.Errorf("NULLは空文字列になるべき: %q", v)
	}
}

func TestEncodeProperties(t *testing.T) {
	b, err := encodeProperties(nil)
	if err != nil || string(b) != "{}" {
		t.Errorf("encodeProperties(nil) = %q, %v", b, err)
	}

	b, err = encodeProperties(map[string]any{"depth": 75.0})
	if err != nil || string(b) != `{"depth":75}` {
		t.Errorf("encodeProperties = %q, %v", b, err)
	}

	if _, err := encodeProperties(map[string]any{"bad": make(chan int)}); err == nil {
		t.Error("エンコードできない値はエラーになるべき")
	}
}

// openTestDB はマイグレーション済みのテスト用DBを返す。
// TEST_DATABASE_URLが未設定またはDBに接続できない場合はスキップする。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URLが未設定のためスキップ")
	}

	db, err := database.Open(dbURL, database.PoolConfig{})
	if err != nil {
		t.Fatalf("データベースのオープンに失敗: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE analytics_events, channels, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("テーブルの初期化に失敗: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, repo *PostgresUserRepo, email string) *model.User {
	t.Helper()
	user := &model.User{
		Name:         "Usuário",
		Email:        email,
		PasswordHash: "hash",
		Role:         model.RoleUser,
		Status:       model.UserStatusPending,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("ユーザー作成に失敗: %v", err)
	}
	return user
}

func TestPostgresUserRepo_Integration(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresUserRepo(db)
	ctx := context.Background()

	user := createTestUser(t, repo, "ana@example.com")
	if user.ID == 0 || user.CreatedAt.IsZero() {
		t.Fatalf("IDと作成日時が設定されるべき: %+v", user)
	}

	t.Run("メールアドレスは大文字小文字を区別せずに検索できる", func(t *testing.T) {
		got, err := repo.FindByEmail(ctx, "ANA@example.com")
		if err != nil {
			t.Fatalf("FindByEmail: %v", err)
		}
		if got == nil || got.ID != user.ID {
			t.Errorf("FindByEmail = %+v, want id %d", got, user.ID)
		}
	})

	t.Run("存在しないユーザーはnil", func(t *testing.T) {
		got, err := repo.FindByID(ctx, user.ID+1000)
		if err != nil || got != nil {
			t.Errorf("FindByID = %+v, %v; want nil, nil", got, err)
		}
	})

	t.Run("重複メールはErrDuplicate", func(t *testing.T) {
		dup := &model.User{Name: "Outra", Email: "ana@example.com", PasswordHash: "x", Role: model.RoleUser, Status: model.UserStatusPending}
		if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
			t.Errorf("Create = %v, want ErrDuplicate", err)
		}
	})

	t.Run("承認状態の更新", func(t *testing.T) {
		if err := repo.UpdateStatus(ctx, user.ID, model.UserStatusApproved); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		got, _ := repo.FindByID(ctx, user.ID)
		if got.Status != model.UserStatusApproved {
			t.Errorf("Status = %q, want approved", got.Status)
		}
		if err := repo.UpdateStatus(ctx, user.ID+1000, model.UserStatusApproved); !errors.Is(err, ErrNotFound) {
			t.Errorf("存在しないユーザーはErrNotFound: %v", err)
		}
	})

	t.Run("EnsureAdminは1回だけ作成する", func(t *testing.T) {
		admin := &model.User{Name: "Admin", Email: "admin@portalx.example", PasswordHash: "h"}
		created, err := repo.EnsureAdmin(ctx, admin)
		if err != nil || !created {
			t.Fatalf("1回目のEnsureAdmin = %v, %v", created, err)
		}
		created, err = repo.EnsureAdmin(ctx, &model.User{Name: "Admin", Email: "admin@portalx.example", PasswordHash: "h2"})
		if err != nil || created {
			t.Errorf("2回目のEnsureAdmin = %v, %v; want false, nil", created, err)
		}
		got, _ := repo.FindByEmail(ctx, "admin@portalx.example")
		if got == nil || !got.IsAdmin() || got.PasswordHash != "h" {
			t.Errorf("管理者が上書きされている: %+v", got)
		}
	})

	t.Run("一覧", func(t *testing.T) {
		users, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(users) != 2 {
			t.Errorf("len(users) = %d, want 2", len(users))
		}
	})
}

func TestPostgresChannelRepo_Integration(t *testing.T) {
	db := openTestDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresChannelRepo(db)
	ctx := context.Background()

	owner := createTestUser(t, users, "dono@example.com")

	ch := &model.Channel{
		OwnerID:      owner.ID,
		Name:         "Amadoras SP",
		TelegramLink: "https://t.me/amadoras_sp",
		Category:     model.CategoryAmadoras,
		State:        "SP",
		City:         "Santos",
		Status:       model.ChannelStatusActive,
	}
	if err := repo.Create(ctx, ch); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ch.ID == 0 || ch.Views != 0 {
		t.Fatalf("採番結果が不正: %+v", ch)
	}

	t.Run("取得したNULL列は空文字列", func(t *testing.T) {
		got, err := repo.FindByID(ctx, ch.ID)
		if err != nil || got == nil {
			t.Fatalf("FindByID = %+v, %v", got, err)
		}
		if got.WhatsAppLink != "" || got.Description != "" || got.ImageURL != "" {
			t.Errorf("NULL列が空文字列になっていない: %+v", got)
		}
	})

	t.Run("Telegramリンクの重複はErrDuplicate", func(t *testing.T) {
		dup := *ch
		dup.ID = 0
		if err := repo.Create(ctx, &dup); !errors.Is(err, ErrDuplicate) {
			t.Errorf("Create = %v, want ErrDuplicate", err)
		}
	})

	t.Run("更新と状態変更", func(t *testing.T) {
		ch.Description = "Só maiores"
		if err := repo.Update(ctx, ch); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if err := repo.UpdateStatus(ctx, ch.ID, model.ChannelStatusRejected); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		active, err := repo.ListByStatus(ctx, model.ChannelStatusActive)
		if err != nil {
			t.Fatalf("ListByStatus: %v", err)
		}
		if len(active) != 0 {
			t.Errorf("非公開のチャンネルが公開一覧に含まれている: %d件", len(active))
		}
		byCat, err := repo.ListActiveByCategory(ctx, model.CategoryAmadoras)
		if err != nil || len(byCat) != 0 {
			t.Errorf("ListActiveByCategory = %d件, %v", len(byCat), err)
		}
	})

	t.Run("所有者一覧と削除", func(t *testing.T) {
		owned, err := repo.ListByOwner(ctx, owner.ID)
		if err != nil || len(owned) != 1 {
			t.Fatalf("ListByOwner = %d件, %v", len(owned), err)
		}
		if err := repo.Delete(ctx, ch.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := repo.Delete(ctx, ch.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("2回目のDelete = %v, want ErrNotFound", err)
		}
	})
}

func TestPostgresAnalyticsRepo_Integration(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresAnalyticsRepo(db)
	ctx := context.Background()

	now := time.Now().UTC()
	events := []*model.Event{
		{ID: "6f1c2a8e-0000-4000-8000-000000000001", Name: model.EventGroupAccess, ListingID: 7, Category: model.CategoryFamosas, OccurredAt: now},
		{ID: "6f1c2a8e-0000-4000-8000-000000000002", Name: model.EventPageView, OccurredAt: now},
		{ID: "6f1c2a8e-0000-4000-8000-000000000003", Name: model.EventPageView, OccurredAt: now.Add(-48 * time.Hour)},
	}
	for _, e := range events {
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	counts, err := repo.CountSince(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountSince: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("CountSince = %+v, want 2 names", counts)
	}

	deleted, err := repo.DeleteBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}
