package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/placemirror/internal/model"
)

// PostgresFetchLogRepo はPostgreSQLを使用したフェッチ監査ログリポジトリ。
type PostgresFetchLogRepo struct {
	db *sql.DB
}

// NewPostgresFetchLogRepo はPostgresFetchLogRepoを生成する。
func NewPostgresFetchLogRepo(db *sql.DB) *PostgresFetchLogRepo {
	return &PostgresFetchLogRepo{db: db}
}

// Insert は監査ログ行を1件追記し、採番されたIDを含む行を返す。
func (r *PostgresFetchLogRepo) Insert(ctx context.Context, endpoint, params, payload string) (*model.FetchLog, error) {
	log := &model.FetchLog{
		Endpoint: endpoint,
		Params:   params,
		Payload:  payload,
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO fetch_logs (endpoint, params, payload)
		 VALUES ($1, $2, $3)
		 RETURNING id, fetched_at`,
		endpoint, params, payload,
	).Scan(&log.ID, &log.FetchedAt)
	if err != nil {
		return nil, fmt.Errorf("フェッチログの追記に失敗しました: %w", err)
	}

	return log, nil
}

// ListAll は全フェッチログをfetched_at降順で返す。
func (r *PostgresFetchLogRepo) ListAll(ctx context.Context) ([]*model.FetchLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, endpoint, params, payload, fetched_at
		 FROM fetch_logs
		 ORDER BY fetched_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("フェッチログの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	logs := []*model.FetchLog{}
	for rows.Next() {
		log := &model.FetchLog{}
		if err := rows.Scan(&log.ID, &log.Endpoint, &log.Params, &log.Payload, &log.FetchedAt); err != nil {
			return nil, fmt.Errorf("フェッチログの読み取りに失敗しました: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フェッチログの走査に失敗しました: %w", err)
	}

	return logs, nil
}

// FindByID は指定IDのフェッチログを取得する。見つからない場合はnilを返す。
func (r *PostgresFetchLogRepo) FindByID(ctx context.Context, id int64) (*model.FetchLog, error) {
	log := &model.FetchLog{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, endpoint, params, payload, fetched_at
		 FROM fetch_logs WHERE id = $1`,
		id,
	).Scan(&log.ID, &log.Endpoint, &log.Params, &log.Payload, &log.FetchedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フェッチログの取得に失敗しました: %w", err)
	}

	return log, nil
}

// DeleteByID は指定IDのフェッチログを削除する。
func (r *PostgresFetchLogRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM fetch_logs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("フェッチログの削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}

	return affected > 0, nil
}

// DeleteAll は全フェッチログを削除し、削除件数を返す。
func (r *PostgresFetchLogRepo) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM fetch_logs`)
	if err != nil {
		return 0, fmt.Errorf("フェッチログの全削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}

	return affected, nil
}

// DeleteOlderThan は指定日数より古いフェッチログを削除し、削除件数を返す。
func (r *PostgresFetchLogRepo) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM fetch_logs WHERE fetched_at < now() - ($1 || ' days')::interval`,
		days,
	)
	if err != nil {
		return 0, fmt.Errorf("古いフェッチログの削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}

	return affected, nil
}
