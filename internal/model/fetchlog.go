// Package model はドメインモデルを定義する。
package model

import "time"

// FetchLog はリモートフェッチ1回分の監査レコードを表す。
// 追記専用であり、更新されることはない（削除のみ可能）。
type FetchLog struct {
	ID        int64
	Endpoint  string
	Params    string // JSONシリアライズ済みのフィルタパラメータ
	Payload   string // JSONシリアライズ済みの生レスポンス（配列またはオブジェクト）
	FetchedAt time.Time
}
