package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/placemirror/internal/middleware"
	"github.com/hitoshi/placemirror/internal/model"
)

// ItemServiceInterface は正規化アイテムハンドラーが必要とするサービスインターフェース。
type ItemServiceInterface interface {
	// List はクエリ条件に一致するアイテムを正準順序で返す。
	List(ctx context.Context, query model.ItemQuery) ([]*model.NormalizedItem, error)
	// ListAllOrdered は全アイテムを構造化ビュー用の順序で返す。
	ListAllOrdered(ctx context.Context) ([]*model.NormalizedItem, error)
}

// ItemHandler は正規化アイテムのHTTPハンドラー。
type ItemHandler struct {
	service ItemServiceInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface) *ItemHandler {
	return &ItemHandler{service: service}
}

// itemResponse は正規化アイテム1件のレスポンス。
// nilのフィールドはnullとして出力する。
type itemResponse struct {
	ID           int64     `json:"id"`
	Endpoint     string    `json:"endpoint"`
	ItemID       *int64    `json:"itemId"`
	UserID       *int64    `json:"userId"`
	PostID       *int64    `json:"postId"`
	AlbumID      *int64    `json:"albumId"`
	Title        *string   `json:"title"`
	Name         *string   `json:"name"`
	Email        *string   `json:"email"`
	Completed    *bool     `json:"completed"`
	URL          *string   `json:"url"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	Body         *string   `json:"body"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

func toItemResponse(item *model.NormalizedItem) itemResponse {
	return itemResponse{
		ID:           item.ID,
		Endpoint:     string(item.Endpoint),
		ItemID:       item.ItemID,
		UserID:       item.UserID,
		PostID:       item.PostID,
		AlbumID:      item.AlbumID,
		Title:        item.Title,
		Name:         item.Name,
		Email:        item.Email,
		Completed:    item.Completed,
		URL:          item.URL,
		ThumbnailURL: item.ThumbnailURL,
		Body:         item.Body,
		FetchedAt:    item.FetchedAt,
	}
}

// ListItems は正規化アイテム一覧をフィルタ付きで返す。
// GET /api/items?endpoint=&userId=&postId=&albumId=&completed=&limit=&offset=
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	query, apiErr := parseItemQuery(r)
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	items, err := h.service.List(r.Context(), *query)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]itemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toItemResponse(item))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// StructuredItems は全アイテムをエンドポイント、親キーの2段階で
// グルーピングして返す。
// GET /api/structured
func (h *ItemHandler) StructuredItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAllOrdered(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	structured := map[string]map[string][]itemResponse{}
	for _, item := range items {
		endpoint := string(item.Endpoint)
		parentKey := item.ParentKey()

		if structured[endpoint] == nil {
			structured[endpoint] = map[string][]itemResponse{}
		}
		structured[endpoint][parentKey] = append(structured[endpoint][parentKey], toItemResponse(item))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(structured)
}

// parseItemQuery はクエリ文字列からItemQueryを構築する。
// 不正な値の場合はAPIErrorを返す。
func parseItemQuery(r *http.Request) (*model.ItemQuery, *model.APIError) {
	q := r.URL.Query()
	query := &model.ItemQuery{}

	if v := q.Get("endpoint"); v != "" {
		endpoint, ok := model.ParseEndpoint(v)
		if !ok {
			return nil, model.NewUnsupportedEndpointError(v)
		}
		query.Endpoint = &endpoint
	}

	var apiErr *model.APIError
	if query.UserID, apiErr = parseInt64Query(q.Get("userId"), "userId"); apiErr != nil {
		return nil, apiErr
	}
	if query.PostID, apiErr = parseInt64Query(q.Get("postId"), "postId"); apiErr != nil {
		return nil, apiErr
	}
	if query.AlbumID, apiErr = parseInt64Query(q.Get("albumId"), "albumId"); apiErr != nil {
		return nil, apiErr
	}
	if query.Completed, apiErr = parseBoolQuery(q.Get("completed"), "completed"); apiErr != nil {
		return nil, apiErr
	}

	if v := q.Get("limit"); v != "" {
		// 省略時はリポジトリ側のデフォルト(100)が適用される。
		// 明示指定の0はデフォルトへ暗黙に置き換わってしまうため拒否する。
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return nil, model.NewInvalidRequestError("limitは1以上の整数で指定してください")
		}
		query.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return nil, model.NewInvalidRequestError("offsetは0以上の整数で指定してください")
		}
		query.Offset = offset
	}

	return query, nil
}

// parseInt64Query はクエリパラメータを*int64として解析する。空の場合はnil。
func parseInt64Query(v, name string) (*int64, *model.APIError) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, model.NewInvalidRequestError(name + "は整数で指定してください")
	}
	return &n, nil
}

// parseBoolQuery はクエリパラメータを*boolとして解析する。空の場合はnil。
// true/falseのほか1/0も受け付ける。
func parseBoolQuery(v, name string) (*bool, *model.APIError) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, model.NewInvalidRequestError(name + "はtrue/falseまたは1/0で指定してください")
	}
	return &b, nil
}
