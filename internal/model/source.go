// Package model はドメインモデルを定義する。
package model

import (
	"net/url"
	"strconv"
)

// Endpoint はリモートAPIのコレクションエンドポイントを表す。
type Endpoint string

const (
	// EndpointUsers はユーザーコレクション。
	EndpointUsers Endpoint = "/users"
	// EndpointPosts は投稿コレクション。
	EndpointPosts Endpoint = "/posts"
	// EndpointComments はコメントコレクション。
	EndpointComments Endpoint = "/comments"
	// EndpointAlbums はアルバムコレクション。
	EndpointAlbums Endpoint = "/albums"
	// EndpointPhotos は写真コレクション。
	EndpointPhotos Endpoint = "/photos"
	// EndpointTodos はTODOコレクション。
	EndpointTodos Endpoint = "/todos"
)

// Endpoints はサポートする6種類のエンドポイントの一覧。
var Endpoints = []Endpoint{
	EndpointUsers,
	EndpointPosts,
	EndpointComments,
	EndpointAlbums,
	EndpointPhotos,
	EndpointTodos,
}

// ParseEndpoint は文字列をEndpointに変換する。
// サポート外の値の場合はfalseを返す。
func ParseEndpoint(s string) (Endpoint, bool) {
	for _, e := range Endpoints {
		if string(e) == s {
			return e, true
		}
	}
	return "", false
}

// RawRecord はリモートAPIからデコードした1件の生レコードを表す。
// スキーマはエンドポイントごとに異なるため、mapのまま保持する。
type RawRecord = map[string]any

// FetchFilters はリモートフェッチのリレーショナルキーによる絞り込み条件。
// nilのキーはクエリ文字列に含めない。
type FetchFilters struct {
	UserID  *int64
	PostID  *int64
	AlbumID *int64
}

// Values はフィルタをクエリパラメータに変換する。空キーは落とす。
func (f FetchFilters) Values() url.Values {
	v := url.Values{}
	if f.UserID != nil {
		v.Set("userId", strconv.FormatInt(*f.UserID, 10))
	}
	if f.PostID != nil {
		v.Set("postId", strconv.FormatInt(*f.PostID, 10))
	}
	if f.AlbumID != nil {
		v.Set("albumId", strconv.FormatInt(*f.AlbumID, 10))
	}
	return v
}

// Map はフィルタを監査ログ保存用のmapに変換する。nilのキーは含めない。
func (f FetchFilters) Map() map[string]int64 {
	m := map[string]int64{}
	if f.UserID != nil {
		m["userId"] = *f.UserID
	}
	if f.PostID != nil {
		m["postId"] = *f.PostID
	}
	if f.AlbumID != nil {
		m["albumId"] = *f.AlbumID
	}
	return m
}
