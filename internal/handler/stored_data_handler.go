package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/placemirror/internal/middleware"
	"github.com/hitoshi/placemirror/internal/model"
)

// payloadPreviewSize は整形ビューに含めるペイロードの先頭件数。
const payloadPreviewSize = 3

// StoredDataServiceInterface はフェッチログハンドラーが必要とするサービスインターフェース。
type StoredDataServiceInterface interface {
	// ListAll は全フェッチログをfetched_at降順で返す。
	ListAll(ctx context.Context) ([]*model.FetchLog, error)
	// DeleteByID は指定IDのフェッチログを削除する。削除対象が存在した場合はtrueを返す。
	DeleteByID(ctx context.Context, id int64) (bool, error)
	// DeleteAll は全フェッチログを削除し、削除件数を返す。
	DeleteAll(ctx context.Context) (int64, error)
}

// StoredDataHandler はフェッチ監査ログのHTTPハンドラー。
type StoredDataHandler struct {
	service StoredDataServiceInterface
}

// NewStoredDataHandler はStoredDataHandlerを生成する。
func NewStoredDataHandler(service StoredDataServiceInterface) *StoredDataHandler {
	return &StoredDataHandler{service: service}
}

// --- レスポンス型 ---

// fetchLogResponse はフェッチログ1件の生レスポンス。
// paramsとpayloadは保存時のシリアライズ済みテキストをそのまま返す。
type fetchLogResponse struct {
	ID        int64     `json:"id"`
	Endpoint  string    `json:"endpoint"`
	Params    string    `json:"params"`
	Payload   string    `json:"payload"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// fetchLogPrettyResponse はフェッチログ1件の整形レスポンス。
// paramsとpayloadをJSONとして展開し、ペイロードは先頭の数件のみ含める。
type fetchLogPrettyResponse struct {
	ID             int64     `json:"id"`
	Endpoint       string    `json:"endpoint"`
	Params         any       `json:"params"`
	PayloadPreview any       `json:"payloadPreview"`
	PayloadCount   int       `json:"payloadCount"`
	FetchedAt      time.Time `json:"fetchedAt"`
}

// deleteAllResponse は全削除の結果レスポンス。
type deleteAllResponse struct {
	Deleted int64 `json:"deleted"`
}

// ListStoredData は全フェッチログを新しい順に返す。
// GET /api/stored-data
func (h *StoredDataHandler) ListStoredData(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]fetchLogResponse, 0, len(logs))
	for _, log := range logs {
		resp = append(resp, fetchLogResponse{
			ID:        log.ID,
			Endpoint:  log.Endpoint,
			Params:    log.Params,
			Payload:   log.Payload,
			FetchedAt: log.FetchedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListStoredDataPretty は全フェッチログを整形して新しい順に返す。
// ペイロードは先頭3件のプレビューと総件数のみを含む。
// GET /api/stored-data-pretty
func (h *StoredDataHandler) ListStoredDataPretty(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]fetchLogPrettyResponse, 0, len(logs))
	for _, log := range logs {
		resp = append(resp, prettifyFetchLog(log))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// prettifyFetchLog はフェッチログ1件を整形レスポンスに変換する。
// シリアライズ済みテキストが不正な場合は生のまま埋め込む。
func prettifyFetchLog(log *model.FetchLog) fetchLogPrettyResponse {
	resp := fetchLogPrettyResponse{
		ID:        log.ID,
		Endpoint:  log.Endpoint,
		FetchedAt: log.FetchedAt,
	}

	var params any
	if err := json.Unmarshal([]byte(log.Params), &params); err != nil {
		params = log.Params
	}
	resp.Params = params

	var records []any
	if err := json.Unmarshal([]byte(log.Payload), &records); err == nil {
		resp.PayloadCount = len(records)
		if len(records) > payloadPreviewSize {
			records = records[:payloadPreviewSize]
		}
		resp.PayloadPreview = records
		return resp
	}

	// 配列でない場合は単一オブジェクトとして試す
	var single any
	if err := json.Unmarshal([]byte(log.Payload), &single); err == nil {
		resp.PayloadCount = 1
		resp.PayloadPreview = single
		return resp
	}

	resp.PayloadCount = 0
	resp.PayloadPreview = log.Payload
	return resp
}

// DeleteStoredData は指定IDのフェッチログを削除する。
// DELETE /api/stored-data/{id}
func (h *StoredDataHandler) DeleteStoredData(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("idは整数で指定してください"))
		return
	}

	deleted, err := h.service.DeleteByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !deleted {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewFetchLogNotFoundError(id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllStoredData は全フェッチログを削除し、削除件数を返す。
// DELETE /api/stored-data
func (h *StoredDataHandler) DeleteAllStoredData(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deleteAllResponse{Deleted: deleted})
}
