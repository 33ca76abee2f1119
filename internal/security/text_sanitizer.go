// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はリモートソースから取得したフリーテキスト
// （タイトル・本文・名前など）をサニタイズする。ソースはプレーンテキストを
// 返す前提だが、外部入力をそのまま永続化しないためにbluemondayの
// 許可リストベースのポリシーを通す。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// 正規化アイテムおよびドメイン行の保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去し、テキストのみを通過させる。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyはエンティティ参照にエスケープを適用するため、
// プレーンテキストをそのまま保存できるようアンエスケープして返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return html.UnescapeString(s.policy.Sanitize(raw))
}
