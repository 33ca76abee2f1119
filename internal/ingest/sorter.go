// Package ingest はフェッチ済みレコードの正規化と永続化パイプラインを提供する。
package ingest

import (
	"sort"

	"github.com/hitoshi/placemirror/internal/model"
)

// SortRecords はエンドポイントごとの正準順序でソートした新しいスライスを返す。
// 順序は保存・表示上の利便のためのものであり、正しさの根拠として依存してはならない。
//
//	users:    name昇順（辞書順）、同名はid昇順
//	posts:    userId昇順、同値はid昇順
//	albums:   userId昇順、同値はid昇順
//	photos:   albumId昇順、同値はid昇順
//	comments: postId昇順、同値はid昇順
//	todos:    completed=falseが先、次にuserId昇順、id昇順
//
// ソートは安定。入力スライスは変更しない。
func SortRecords(endpoint model.Endpoint, records []model.RawRecord) []model.RawRecord {
	sorted := make([]model.RawRecord, len(records))
	copy(sorted, records)

	less := lessFunc(endpoint)
	if less == nil {
		return sorted
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return sorted
}

// lessFunc はエンドポイントに対応する比較関数を返す。
func lessFunc(endpoint model.Endpoint) func(a, b model.RawRecord) bool {
	switch endpoint {
	case model.EndpointUsers:
		return func(a, b model.RawRecord) bool {
			an, bn := stringValue(a, "name"), stringValue(b, "name")
			if an != bn {
				return an < bn
			}
			return numValue(a, "id") < numValue(b, "id")
		}
	case model.EndpointPosts, model.EndpointAlbums:
		return byParentThenID("userId")
	case model.EndpointPhotos:
		return byParentThenID("albumId")
	case model.EndpointComments:
		return byParentThenID("postId")
	case model.EndpointTodos:
		return func(a, b model.RawRecord) bool {
			ac, bc := completedRank(a), completedRank(b)
			if ac != bc {
				return ac < bc
			}
			au, bu := numValue(a, "userId"), numValue(b, "userId")
			if au != bu {
				return au < bu
			}
			return numValue(a, "id") < numValue(b, "id")
		}
	}
	return nil
}

// byParentThenID は親ID昇順、同値はid昇順の比較関数を返す。
func byParentThenID(parentKey string) func(a, b model.RawRecord) bool {
	return func(a, b model.RawRecord) bool {
		ap, bp := numValue(a, parentKey), numValue(b, parentKey)
		if ap != bp {
			return ap < bp
		}
		return numValue(a, "id") < numValue(b, "id")
	}
}

// completedRank は未完了（falseまたは欠落）を0、完了を1として返す。
// 未完了が常に完了より先にソートされる。
func completedRank(rec model.RawRecord) int {
	if v, ok := rec["completed"].(bool); ok && v {
		return 1
	}
	return 0
}

// numValue はレコードの数値フィールドを返す。欠落・非数値は0。
func numValue(rec model.RawRecord, key string) float64 {
	if v, ok := rec[key].(float64); ok {
		return v
	}
	return 0
}

// stringValue はレコードの文字列フィールドを返す。欠落・非文字列は空文字列。
func stringValue(rec model.RawRecord, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}
