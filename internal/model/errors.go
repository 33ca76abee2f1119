// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, remote, storage, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnsupportedEndpoint = "UNSUPPORTED_ENDPOINT"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeRemoteFetchFailed   = "REMOTE_FETCH_FAILED"
	ErrCodeStorageFailed       = "STORAGE_FAILED"
	ErrCodeFetchLogNotFound    = "FETCH_LOG_NOT_FOUND"
)

// NewUnsupportedEndpointError はサポート外エンドポイントエラーを生成する。
func NewUnsupportedEndpointError(endpoint string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedEndpoint,
		Message:  fmt.Sprintf("サポートされていないエンドポイントです: %s", endpoint),
		Category: "validation",
		Action:   "endpointには /users、/posts、/comments、/albums、/photos、/todos のいずれかを指定してください。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("無効なリクエストです: %s", reason),
		Category: "validation",
		Action:   "リクエストの形式を確認してください。",
	}
}

// NewRemoteFetchError はリモートAPIフェッチ失敗エラーを生成する。
// 非成功ステータスまたはトランスポート失敗で使用する。
func NewRemoteFetchError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRemoteFetchFailed,
		Message:  fmt.Sprintf("リモートAPIの取得に失敗しました: %s", reason),
		Category: "remote",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewStorageError は永続化層の読み書き失敗エラーを生成する。
func NewStorageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeStorageFailed,
		Message:  fmt.Sprintf("ストレージ操作に失敗しました: %s", reason),
		Category: "storage",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewFetchLogNotFoundError はフェッチログ未検出エラーを生成する。
func NewFetchLogNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeFetchLogNotFound,
		Message:  fmt.Sprintf("指定されたフェッチログが見つかりません: %d", id),
		Category: "storage",
		Action:   "フェッチログのIDを確認してください。",
	}
}
