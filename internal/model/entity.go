// Package model はドメインモデルを定義する。
package model

// ドメインテーブルの行はすべて外部IDをキーとし、フェッチの副作用としてのみ
// 作成される。ソースレコードに存在しないフィールドはnilのまま保持する
// （map上のキー欠落を暗黙に扱わず、明示的なオプショナルとして表現する）。

// User はリモートソースのユーザーを表す。Post/Album/Todoを所有する。
type User struct {
	ID       int64
	Name     *string
	Username *string
	Email    *string
	Phone    *string
	Website  *string
	Address  *string // JSONシリアライズ済みテキスト
	Company  *string // JSONシリアライズ済みテキスト
}

// Post は投稿を表す。Userに属し、Commentを所有する。
type Post struct {
	ID     int64
	UserID *int64
	Title  *string
	Body   *string
}

// Comment はコメントを表す。Postに属する。
type Comment struct {
	ID     int64
	PostID *int64
	Name   *string
	Email  *string
	Body   *string
}

// Album はアルバムを表す。Userに属し、Photoを所有する。
type Album struct {
	ID     int64
	UserID *int64
	Title  *string
}

// Photo は写真を表す。Albumに属する。
type Photo struct {
	ID           int64
	AlbumID      *int64
	Title        *string
	URL          *string
	ThumbnailURL *string
}

// Todo はTODOを表す。Userに属する。
type Todo struct {
	ID        int64
	UserID    *int64
	Title     *string
	Completed *bool
}
