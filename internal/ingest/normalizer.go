package ingest

import (
	"encoding/json"
	"time"

	"github.com/hitoshi/placemirror/internal/model"
	"github.com/hitoshi/placemirror/internal/security"
)

// Normalizer は生レコードを正規化アイテムとドメイン行にマッピングする。
// フリーテキストのフィールド（name、title、bodyなど）は保存前にサニタイズされる。
type Normalizer struct {
	sanitizer security.TextSanitizerService
}

// NewNormalizer はNormalizerの新しいインスタンスを生成する。
func NewNormalizer(sanitizer security.TextSanitizerService) *Normalizer {
	return &Normalizer{sanitizer: sanitizer}
}

// BuildBatch はソート済みの生レコード群を1回のフェッチ分の永続化バッチに変換する。
// 各レコードについて (1) エンティティ固有フィールドのみ設定したアイテムログ行と
// (2) 外部IDをキーとするドメイン行を生成する。ソースに存在しないフィールドは
// nilのまま保持され、エラーにはならない。外部IDを持たないレコードは
// ドメイン行を生成せず、アイテムログ行のみを生成する。
func (n *Normalizer) BuildBatch(endpoint model.Endpoint, records []model.RawRecord, fetchedAt time.Time) *model.IngestBatch {
	batch := &model.IngestBatch{Endpoint: endpoint}

	for _, rec := range records {
		batch.Items = append(batch.Items, n.normalizeItem(endpoint, rec, fetchedAt))

		id := numField(rec, "id")
		if id == nil {
			continue
		}

		switch endpoint {
		case model.EndpointUsers:
			batch.Users = append(batch.Users, model.User{
				ID:       *id,
				Name:     n.textField(rec, "name"),
				Username: n.textField(rec, "username"),
				Email:    strField(rec, "email"),
				Phone:    strField(rec, "phone"),
				Website:  strField(rec, "website"),
				Address:  jsonField(rec, "address"),
				Company:  jsonField(rec, "company"),
			})
		case model.EndpointPosts:
			batch.Posts = append(batch.Posts, model.Post{
				ID:     *id,
				UserID: numField(rec, "userId"),
				Title:  n.textField(rec, "title"),
				Body:   n.textField(rec, "body"),
			})
		case model.EndpointComments:
			batch.Comments = append(batch.Comments, model.Comment{
				ID:     *id,
				PostID: numField(rec, "postId"),
				Name:   n.textField(rec, "name"),
				Email:  strField(rec, "email"),
				Body:   n.textField(rec, "body"),
			})
		case model.EndpointAlbums:
			batch.Albums = append(batch.Albums, model.Album{
				ID:     *id,
				UserID: numField(rec, "userId"),
				Title:  n.textField(rec, "title"),
			})
		case model.EndpointPhotos:
			batch.Photos = append(batch.Photos, model.Photo{
				ID:           *id,
				AlbumID:      numField(rec, "albumId"),
				Title:        n.textField(rec, "title"),
				URL:          strField(rec, "url"),
				ThumbnailURL: strField(rec, "thumbnailUrl"),
			})
		case model.EndpointTodos:
			batch.Todos = append(batch.Todos, model.Todo{
				ID:        *id,
				UserID:    numField(rec, "userId"),
				Title:     n.textField(rec, "title"),
				Completed: boolField(rec, "completed"),
			})
		}
	}

	return batch
}

// normalizeItem は生レコードをフラットなアイテムログ行に変換する。
// エンドポイントに応じたフィールドのみを設定し、残りはnilのまま残す。
func (n *Normalizer) normalizeItem(endpoint model.Endpoint, rec model.RawRecord, fetchedAt time.Time) model.NormalizedItem {
	item := model.NormalizedItem{
		Endpoint:  endpoint,
		ItemID:    numField(rec, "id"),
		FetchedAt: fetchedAt,
	}

	switch endpoint {
	case model.EndpointUsers:
		item.Name = n.textField(rec, "name")
		item.Email = strField(rec, "email")
	case model.EndpointPosts:
		item.UserID = numField(rec, "userId")
		item.Title = n.textField(rec, "title")
		item.Body = n.textField(rec, "body")
	case model.EndpointComments:
		item.PostID = numField(rec, "postId")
		item.Name = n.textField(rec, "name")
		item.Email = strField(rec, "email")
		item.Body = n.textField(rec, "body")
	case model.EndpointAlbums:
		item.UserID = numField(rec, "userId")
		item.Title = n.textField(rec, "title")
	case model.EndpointPhotos:
		item.AlbumID = numField(rec, "albumId")
		item.Title = n.textField(rec, "title")
		item.URL = strField(rec, "url")
		item.ThumbnailURL = strField(rec, "thumbnailUrl")
	case model.EndpointTodos:
		item.UserID = numField(rec, "userId")
		item.Title = n.textField(rec, "title")
		item.Completed = boolField(rec, "completed")
	}

	return item
}

// textField はフリーテキストフィールドをサニタイズ付きで取り出す。
func (n *Normalizer) textField(rec model.RawRecord, key string) *string {
	s := strField(rec, key)
	if s == nil {
		return nil
	}
	sanitized := n.sanitizer.Sanitize(*s)
	return &sanitized
}

// numField はレコードの数値フィールドをint64として取り出す。欠落・非数値はnil。
func numField(rec model.RawRecord, key string) *int64 {
	if v, ok := rec[key].(float64); ok {
		n := int64(v)
		return &n
	}
	return nil
}

// strField はレコードの文字列フィールドを取り出す。欠落・非文字列はnil。
func strField(rec model.RawRecord, key string) *string {
	if v, ok := rec[key].(string); ok {
		return &v
	}
	return nil
}

// boolField はレコードの真偽値フィールドを取り出す。欠落・非真偽値はnil。
func boolField(rec model.RawRecord, key string) *bool {
	if v, ok := rec[key].(bool); ok {
		return &v
	}
	return nil
}

// jsonField はネストしたオブジェクトフィールドをJSONテキストに変換して取り出す。
// 欠落時はnil。addressやcompanyのような構造化フィールドに使用する。
func jsonField(rec model.RawRecord, key string) *string {
	v, ok := rec[key]
	if !ok || v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}
