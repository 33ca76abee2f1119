package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/hitoshi/placemirror/internal/model"
)

// defaultItemLimit はアイテム一覧のデフォルト取得件数。
const defaultItemLimit = 100

// itemColumns はnormalized_itemsのSELECT対象カラム。
var itemColumns = []string{
	"id", "endpoint", "item_id", "user_id", "post_id", "album_id",
	"title", "name", "email", "completed", "url", "thumbnail_url",
	"body", "fetched_at",
}

// itemOrder はアイテム一覧の正準順序。親IDのNULLは先頭に並ぶ。
var itemOrder = []string{
	"endpoint ASC",
	"user_id ASC NULLS FIRST",
	"post_id ASC NULLS FIRST",
	"album_id ASC NULLS FIRST",
	"item_id ASC NULLS FIRST",
	"id ASC",
}

// PostgresItemRepo はPostgreSQLを使用した正規化アイテムリポジトリ。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

// List はクエリ条件に一致するアイテムを正準順序で返す。
func (r *PostgresItemRepo) List(ctx context.Context, query model.ItemQuery) ([]*model.NormalizedItem, error) {
	builder := sq.Select(itemColumns...).
		From("normalized_items").
		PlaceholderFormat(sq.Dollar).
		OrderBy(itemOrder...)

	if query.Endpoint != nil {
		builder = builder.Where(sq.Eq{"endpoint": string(*query.Endpoint)})
	}
	if query.UserID != nil {
		builder = builder.Where(sq.Eq{"user_id": *query.UserID})
	}
	if query.PostID != nil {
		builder = builder.Where(sq.Eq{"post_id": *query.PostID})
	}
	if query.AlbumID != nil {
		builder = builder.Where(sq.Eq{"album_id": *query.AlbumID})
	}
	if query.Completed != nil {
		builder = builder.Where(sq.Eq{"completed": *query.Completed})
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultItemLimit
	}
	builder = builder.Limit(uint64(limit))
	if query.Offset > 0 {
		builder = builder.Offset(uint64(query.Offset))
	}

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("アイテムクエリの構築に失敗しました: %w", err)
	}

	return r.queryItems(ctx, sqlStr, args...)
}

// ListAllOrdered は全アイテムを構造化ビュー用の正準順序で返す。
func (r *PostgresItemRepo) ListAllOrdered(ctx context.Context) ([]*model.NormalizedItem, error) {
	sqlStr, args, err := sq.Select(itemColumns...).
		From("normalized_items").
		PlaceholderFormat(sq.Dollar).
		OrderBy(itemOrder...).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("アイテムクエリの構築に失敗しました: %w", err)
	}

	return r.queryItems(ctx, sqlStr, args...)
}

func (r *PostgresItemRepo) queryItems(ctx context.Context, sqlStr string, args ...any) ([]*model.NormalizedItem, error) {
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("アイテムの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items := []*model.NormalizedItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("アイテムの読み取りに失敗しました: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アイテムの走査に失敗しました: %w", err)
	}

	return items, nil
}

// scanItem は1行を正規化アイテムに変換する。NULLカラムはnilになる。
func scanItem(rows *sql.Rows) (*model.NormalizedItem, error) {
	item := &model.NormalizedItem{}
	var endpoint string
	var itemID, userID, postID, albumID sql.NullInt64
	var title, name, email, url, thumbnailURL, body sql.NullString
	var completed sql.NullBool

	err := rows.Scan(
		&item.ID, &endpoint, &itemID, &userID, &postID, &albumID,
		&title, &name, &email, &completed, &url, &thumbnailURL,
		&body, &item.FetchedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Endpoint = model.Endpoint(endpoint)
	item.ItemID = nullInt64Ptr(itemID)
	item.UserID = nullInt64Ptr(userID)
	item.PostID = nullInt64Ptr(postID)
	item.AlbumID = nullInt64Ptr(albumID)
	item.Title = nullStringPtr(title)
	item.Name = nullStringPtr(name)
	item.Email = nullStringPtr(email)
	item.Completed = nullBoolPtr(completed)
	item.URL = nullStringPtr(url)
	item.ThumbnailURL = nullStringPtr(thumbnailURL)
	item.Body = nullStringPtr(body)

	return item, nil
}

// nullInt64Ptr はsql.NullInt64を*int64に変換する。
func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

// nullStringPtr はsql.NullStringを*stringに変換する。
func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

// nullBoolPtr はsql.NullBoolを*boolに変換する。
func nullBoolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return &v.Bool
}
