// Package handler はHTTP APIハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/placemirror/internal/ingest"
	"github.com/hitoshi/placemirror/internal/middleware"
	"github.com/hitoshi/placemirror/internal/model"
)

// FetchServiceInterface はフェッチハンドラーが必要とするサービスインターフェース。
type FetchServiceInterface interface {
	// FetchAndStore はリモートフェッチから保存までのパイプラインを実行する。
	FetchAndStore(ctx context.Context, endpoint model.Endpoint, filters model.FetchFilters) (*ingest.Result, error)
}

// FetchHandler はリモートフェッチのHTTPハンドラー。
type FetchHandler struct {
	service  FetchServiceInterface
	validate *validator.Validate
}

// NewFetchHandler はFetchHandlerを生成する。
func NewFetchHandler(service FetchServiceInterface) *FetchHandler {
	return &FetchHandler{
		service:  service,
		validate: validator.New(),
	}
}

// fetchDataRequest はフェッチリクエストのボディ。
// endpointは6種類のコレクションのいずれかでなければならない。
type fetchDataRequest struct {
	Endpoint string `json:"endpoint" validate:"required,oneof=/users /posts /comments /albums /photos /todos"`
	UserID   *int64 `json:"userId,omitempty"`
	PostID   *int64 `json:"postId,omitempty"`
	AlbumID  *int64 `json:"albumId,omitempty"`
}

// fetchDataResponse はフェッチ結果のレスポンス。
type fetchDataResponse struct {
	Endpoint   string            `json:"endpoint"`
	Params     map[string]int64  `json:"params"`
	Count      int               `json:"count"`
	FetchLogID int64             `json:"fetchLogId"`
	Data       []model.RawRecord `json:"data"`
}

// FetchData はリモートAPIからデータを取得して保存する。
// POST /api/fetch-data
func (h *FetchHandler) FetchData(w http.ResponseWriter, r *http.Request) {
	var req fetchDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewUnsupportedEndpointError(req.Endpoint))
		return
	}

	endpoint, ok := model.ParseEndpoint(req.Endpoint)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewUnsupportedEndpointError(req.Endpoint))
		return
	}

	filters := model.FetchFilters{
		UserID:  req.UserID,
		PostID:  req.PostID,
		AlbumID: req.AlbumID,
	}

	result, err := h.service.FetchAndStore(r.Context(), endpoint, filters)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fetchDataResponse{
		Endpoint:   string(result.Endpoint),
		Params:     result.Params,
		Count:      result.Count,
		FetchLogID: result.FetchLogID,
		Data:       result.Records,
	})
}

// --- 共通エラーハンドリング ---

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// エラーレスポンスの書き込みはmiddleware.WriteErrorResponseに一本化する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		middleware.WriteErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIエラーコードをHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnsupportedEndpoint, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeFetchLogNotFound:
		return http.StatusNotFound
	case model.ErrCodeRemoteFetchFailed, model.ErrCodeStorageFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
