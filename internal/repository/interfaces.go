// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/placemirror/internal/model"
)

// FetchLogRepository はフェッチ監査ログの永続化インターフェース。
// ログは追記専用であり、更新操作は提供しない。
type FetchLogRepository interface {
	// Insert は監査ログ行を1件追記し、採番されたIDを含む行を返す。
	Insert(ctx context.Context, endpoint, params, payload string) (*model.FetchLog, error)

	// ListAll は全フェッチログをfetched_at降順で返す。
	ListAll(ctx context.Context) ([]*model.FetchLog, error)

	// FindByID は指定IDのフェッチログを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.FetchLog, error)

	// DeleteByID は指定IDのフェッチログを削除する。
	// 削除対象が存在した場合はtrueを返す。
	DeleteByID(ctx context.Context, id int64) (bool, error)

	// DeleteAll は全フェッチログを削除し、削除件数を返す。
	DeleteAll(ctx context.Context) (int64, error)

	// DeleteOlderThan は指定日数より古いフェッチログを削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

// ItemRepository は正規化アイテムログの永続化インターフェース。
type ItemRepository interface {
	// List はクエリ条件に一致するアイテムを返す。
	// 順序はendpoint、user_id、post_id、album_id、item_idの昇順
	// （親IDのNULLは先頭）。
	List(ctx context.Context, query model.ItemQuery) ([]*model.NormalizedItem, error)

	// ListAllOrdered は全アイテムを構造化ビュー用の順序で返す。
	ListAllOrdered(ctx context.Context) ([]*model.NormalizedItem, error)
}

// DomainRepository はドメインテーブルの永続化インターフェース。
// 全ての書き込みはフェッチバッチ単位で行われ、行単位の書き込みAPIは持たない。
type DomainRepository interface {
	// ApplyBatch はバッチ全体を単一トランザクションで適用する。
	// 各行は外部IDをキーに冪等にUPSERTされ、正規化アイテムは追記される。
	// 途中で失敗した場合はバッチ全体がロールバックされる。
	ApplyBatch(ctx context.Context, batch *model.IngestBatch) error

	// ListUsers は全ユーザーをid昇順で返す。
	ListUsers(ctx context.Context) ([]*model.User, error)

	// ListPosts は投稿一覧をid昇順で返す。userIDで絞り込み可能。
	ListPosts(ctx context.Context, userID *int64) ([]*model.Post, error)

	// ListComments はコメント一覧をid昇順で返す。postIDで絞り込み可能。
	ListComments(ctx context.Context, postID *int64) ([]*model.Comment, error)

	// ListAlbums はアルバム一覧をid昇順で返す。userIDで絞り込み可能。
	ListAlbums(ctx context.Context, userID *int64) ([]*model.Album, error)

	// ListPhotos は写真一覧をid昇順で返す。albumIDで絞り込み可能。
	ListPhotos(ctx context.Context, albumID *int64) ([]*model.Photo, error)

	// ListTodos はTODO一覧をid昇順で返す。userIDとcompletedで絞り込み可能。
	ListTodos(ctx context.Context, userID *int64, completed *bool) ([]*model.Todo, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
