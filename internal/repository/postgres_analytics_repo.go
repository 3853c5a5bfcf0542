package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/portalx/internal/model"
)

// PostgresAnalyticsRepo はPostgreSQLを使用した分析イベントリポジトリ。
type PostgresAnalyticsRepo struct {
	db *sql.DB
}

// NewPostgresAnalyticsRepo はPostgresAnalyticsRepoを生成する。
func NewPostgresAnalyticsRepo(db *sql.DB) *PostgresAnalyticsRepo {
	return &PostgresAnalyticsRepo{db: db}
}

// Insert はイベントを1件保存する。ListingIDが0の場合はNULLとして保存する。
func (r *PostgresAnalyticsRepo) Insert(ctx context.Context, event *model.Event) error {
	props, err := encodeProperties(event.Properties)
	if err != nil {
		return err
	}

	var listingID sql.NullInt64
	if event.ListingID > 0 {
		listingID = sql.NullInt64{Int64: event.ListingID, Valid: true}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO analytics_events (id, name, visitor_id, session_id, url, referrer,
		                               listing_id, category, is_premium, properties, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.Name, event.VisitorID, event.SessionID, event.URL, event.Referrer,
		listingID, string(event.Category), event.IsPremium, props, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

// CountSince はsince以降のイベント件数をイベント名ごとに返す。
func (r *PostgresAnalyticsRepo) CountSince(ctx context.Context, since time.Time) ([]EventCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, count(*) FROM analytics_events
		 WHERE occurred_at >= $1
		 GROUP BY name
		 ORDER BY count(*) DESC, name`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count analytics events: %w", err)
	}
	defer rows.Close()

	var counts []EventCount
	for rows.Next() {
		var c EventCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event counts: %w", err)
	}
	return counts, nil
}

// DeleteBefore はbeforeより前に発生したイベントを削除する。
func (r *PostgresAnalyticsRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM analytics_events WHERE occurred_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete analytics events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func encodeProperties(props map[string]any) ([]byte, error) {
	if len(props) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event properties: %w", err)
	}
	return b, nil
}

// compile-time interface check
var _ AnalyticsRepository = (*PostgresAnalyticsRepo)(nil)
