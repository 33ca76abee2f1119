package handler

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/placemirror/internal/middleware"
)

//go:embed index.html
var indexHTML []byte

// DBPinger はヘルスチェックが必要とするDB疎通確認のインターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// フェッチ
	FetchService FetchServiceInterface

	// フェッチログ
	StoredDataService StoredDataServiceInterface

	// 正規化アイテム
	ItemService ItemServiceInterface

	// ドメインテーブル
	DomainService DomainServiceInterface

	// ヘルスチェック
	DB DBPinger

	// メトリクス
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → CORS → RateLimit(General)
//
// POST /api/fetch-dataにはさらにフェッチ専用のレート制限がかかる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	fetchHandler := NewFetchHandler(deps.FetchService)
	storedHandler := NewStoredDataHandler(deps.StoredDataService)
	itemHandler := NewItemHandler(deps.ItemService)
	entityHandler := NewEntityHandler(deps.DomainService)

	// --- レート制限の外に置くルート ---

	// エントリページ
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexHTML)
	})

	// ヘルスチェック（死活監視用）
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheusスクレイプ
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// リモートフェッチ（フェッチ専用レート制限を追加）
		r.With(deps.RateLimiter.FetchMiddleware()).Post("/api/fetch-data", fetchHandler.FetchData)

		// フェッチ監査ログ
		r.Route("/api/stored-data", func(r chi.Router) {
			r.Get("/", storedHandler.ListStoredData)
			r.Delete("/", storedHandler.DeleteAllStoredData)
			r.Delete("/{id}", storedHandler.DeleteStoredData)
		})
		r.Get("/api/stored-data-pretty", storedHandler.ListStoredDataPretty)

		// 正規化アイテム
		r.Get("/api/items", itemHandler.ListItems)
		r.Get("/api/structured", itemHandler.StructuredItems)

		// ドメインテーブル閲覧
		r.Get("/api/users", entityHandler.ListUsers)
		r.Get("/api/posts", entityHandler.ListPosts)
		r.Get("/api/comments", entityHandler.ListComments)
		r.Get("/api/albums", entityHandler.ListAlbums)
		r.Get("/api/photos", entityHandler.ListPhotos)
		r.Get("/api/todos", entityHandler.ListTodos)
	})

	return r
}
