// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// NormalizedItem はフェッチごとに追記されるフラットな正規化レコード。
// 重複排除されるドメインテーブルとは別に、フェッチ単位の監査証跡として蓄積する。
// エンティティ固有のフィールドのみが設定され、残りはnilのまま保持される。
type NormalizedItem struct {
	ID           int64
	Endpoint     Endpoint
	ItemID       *int64
	UserID       *int64
	PostID       *int64
	AlbumID      *int64
	Title        *string
	Name         *string
	Email        *string
	Completed    *bool
	URL          *string
	ThumbnailURL *string
	Body         *string
	FetchedAt    time.Time
}

// ParentKey は構造化ビューのグルーピングに使う親キーを返す。
// posts/todos/albumsはuser:<id>、commentsはpost:<id>、photosはalbum:<id>、
// それ以外（および親IDが欠落したレコード）はrootになる。
func (n *NormalizedItem) ParentKey() string {
	switch n.Endpoint {
	case EndpointPosts, EndpointTodos, EndpointAlbums:
		if n.UserID != nil {
			return fmt.Sprintf("user:%d", *n.UserID)
		}
	case EndpointComments:
		if n.PostID != nil {
			return fmt.Sprintf("post:%d", *n.PostID)
		}
	case EndpointPhotos:
		if n.AlbumID != nil {
			return fmt.Sprintf("album:%d", *n.AlbumID)
		}
	}
	return "root"
}

// ItemQuery は正規化アイテム一覧の絞り込み条件とページネーションを表す。
type ItemQuery struct {
	Endpoint  *Endpoint
	UserID    *int64
	PostID    *int64
	AlbumID   *int64
	Completed *bool
	Limit     int
	Offset    int
}

// IngestBatch は1回のフェッチで永続化する行の集合を表す。
// エンティティ種別ごとのドメイン行と、追記専用の正規化アイテム行を含む。
// 全行が単一トランザクションで適用される。
type IngestBatch struct {
	Endpoint Endpoint
	Users    []User
	Posts    []Post
	Comments []Comment
	Albums   []Album
	Photos   []Photo
	Todos    []Todo
	Items    []NormalizedItem
}

// Size はバッチに含まれるドメイン行の総数を返す。
func (b *IngestBatch) Size() int {
	return len(b.Users) + len(b.Posts) + len(b.Comments) +
		len(b.Albums) + len(b.Photos) + len(b.Todos)
}
