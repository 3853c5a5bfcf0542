package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/portalx/internal/database"
	"github.com/hitoshi/portalx/internal/model"
)

const channelColumns = `id, owner_id, name, telegram_link, whatsapp_link, category,
	state, city, description, image_url, views, status, created_at`

// PostgresChannelRepo はPostgreSQLを使用したチャンネルリポジトリ。
type PostgresChannelRepo struct {
	db *sql.DB
}

// NewPostgresChannelRepo はPostgresChannelRepoを生成する。
func NewPostgresChannelRepo(db *sql.DB) *PostgresChannelRepo {
	return &PostgresChannelRepo{db: db}
}

func scanChannel(row rowScanner) (*model.Channel, error) {
	ch := &model.Channel{}
	var telegram, whatsapp, state, city, description, imageURL sql.NullString

	err := row.Scan(
		&ch.ID, &ch.OwnerID, &ch.Name, &telegram, &whatsapp, &ch.Category,
		&state, &city, &description, &imageURL, &ch.Views, &ch.Status, &ch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	ch.TelegramLink = nullStringValue(telegram)
	ch.WhatsAppLink = nullStringValue(whatsapp)
	ch.State = nullStringValue(state)
	ch.City = nullStringValue(city)
	ch.Description = nullStringValue(description)
	ch.ImageURL = nullStringValue(imageURL)
	return ch, nil
}

// FindByID は指定IDのチャンネルを取得する。見つからない場合はnilを返す。
func (r *PostgresChannelRepo) FindByID(ctx context.Context, id int64) (*model.Channel, error) {
	ch, err := scanChannel(r.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("チャンネルの取得に失敗しました: %w", err)
	}
	return ch, nil
}

// Create はチャンネルを作成する。
func (r *PostgresChannelRepo) Create(ctx context.Context, ch *model.Channel) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO channels (owner_id, name, telegram_link, whatsapp_link, category,
		                       state, city, description, image_url, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, views, created_at`,
		ch.OwnerID, ch.Name, nullString(ch.TelegramLink), nullString(ch.WhatsAppLink), ch.Category,
		nullString(ch.State), nullString(ch.City), nullString(ch.Description), nullString(ch.ImageURL),
		ch.Status,
	).Scan(&ch.ID, &ch.Views, &ch.CreatedAt)
	if database.IsUniqueViolation(err, "") {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("チャンネルの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はチャンネルの編集可能な項目を更新する。所有者、閲覧数、公開状態は変更しない。
func (r *PostgresChannelRepo) Update(ctx context.Context, ch *model.Channel) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE channels SET
		    name = $2, telegram_link = $3, whatsapp_link = $4, category = $5,
		    state = $6, city = $7, description = $8, image_url = $9,
		    updated_at = now()
		 WHERE id = $1`,
		ch.ID, ch.Name, nullString(ch.TelegramLink), nullString(ch.WhatsAppLink), ch.Category,
		nullString(ch.State), nullString(ch.City), nullString(ch.Description), nullString(ch.ImageURL),
	)
	if database.IsUniqueViolation(err, "") {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("チャンネルの更新に失敗しました: %w", err)
	}
	return expectAffected(result)
}

// Delete は指定IDのチャンネルを削除する。
func (r *PostgresChannelRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("チャンネルの削除に失敗しました: %w", err)
	}
	return expectAffected(result)
}

// ListByOwner は所有者のチャンネルを作成日時の新しい順で返す。
func (r *PostgresChannelRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Channel, error) {
	return r.list(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
}

// ListByStatus は指定状態のチャンネルを閲覧数の多い順で返す。
func (r *PostgresChannelRepo) ListByStatus(ctx context.Context, status model.ChannelStatus) ([]*model.Channel, error) {
	return r.list(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE status = $1 ORDER BY views DESC, id DESC`,
		status,
	)
}

// ListActiveByCategory は公開中のチャンネルのうち指定カテゴリのものを閲覧数の多い順で返す。
func (r *PostgresChannelRepo) ListActiveByCategory(ctx context.Context, category model.Category) ([]*model.Channel, error) {
	return r.list(ctx,
		`SELECT `+channelColumns+` FROM channels
		 WHERE status = 'active' AND category = $1
		 ORDER BY views DESC, id DESC`,
		category,
	)
}

// UpdateStatus はチャンネルの公開状態を更新する。
func (r *PostgresChannelRepo) UpdateStatus(ctx context.Context, id int64, status model.ChannelStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE channels SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("チャンネル状態の更新に失敗しました: %w", err)
	}
	return expectAffected(result)
}

func (r *PostgresChannelRepo) list(ctx context.Context, query string, args ...any) ([]*model.Channel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("チャンネル一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var channels []*model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("チャンネルのスキャンに失敗しました: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("チャンネル一覧の走査に失敗しました: %w", err)
	}
	return channels, nil
}

// nullString は空文字列をNULLとして扱うsql.NullStringを返す。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ ChannelRepository = (*PostgresChannelRepo)(nil)
