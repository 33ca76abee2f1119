package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/placemirror/internal/middleware"
	"github.com/hitoshi/placemirror/internal/model"
)

// DomainServiceInterface はドメインテーブル閲覧ハンドラーが必要とする
// サービスインターフェース。
type DomainServiceInterface interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
	ListPosts(ctx context.Context, userID *int64) ([]*model.Post, error)
	ListComments(ctx context.Context, postID *int64) ([]*model.Comment, error)
	ListAlbums(ctx context.Context, userID *int64) ([]*model.Album, error)
	ListPhotos(ctx context.Context, albumID *int64) ([]*model.Photo, error)
	ListTodos(ctx context.Context, userID *int64, completed *bool) ([]*model.Todo, error)
}

// EntityHandler はドメインテーブル閲覧のHTTPハンドラー。
// フェッチで蓄積された重複排除済みの行を返す。
type EntityHandler struct {
	service DomainServiceInterface
}

// NewEntityHandler はEntityHandlerを生成する。
func NewEntityHandler(service DomainServiceInterface) *EntityHandler {
	return &EntityHandler{service: service}
}

// --- レスポンス型（フィールド名はリモートソースのキーに揃える） ---

type userResponse struct {
	ID       int64           `json:"id"`
	Name     *string         `json:"name"`
	Username *string         `json:"username"`
	Email    *string         `json:"email"`
	Phone    *string         `json:"phone"`
	Website  *string         `json:"website"`
	Address  json.RawMessage `json:"address"`
	Company  json.RawMessage `json:"company"`
}

type postResponse struct {
	ID     int64   `json:"id"`
	UserID *int64  `json:"userId"`
	Title  *string `json:"title"`
	Body   *string `json:"body"`
}

type commentResponse struct {
	ID     int64   `json:"id"`
	PostID *int64  `json:"postId"`
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Body   *string `json:"body"`
}

type albumResponse struct {
	ID     int64   `json:"id"`
	UserID *int64  `json:"userId"`
	Title  *string `json:"title"`
}

type photoResponse struct {
	ID           int64   `json:"id"`
	AlbumID      *int64  `json:"albumId"`
	Title        *string `json:"title"`
	URL          *string `json:"url"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}

type todoResponse struct {
	ID        int64   `json:"id"`
	UserID    *int64  `json:"userId"`
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// rawJSONField はJSONシリアライズ済みテキストをそのままレスポンスに埋め込む。
// nilまたは不正なJSONの場合はnullになる。
func rawJSONField(v *string) json.RawMessage {
	if v == nil || !json.Valid([]byte(*v)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(*v)
}

// ListUsers は保存済みユーザー一覧を返す。
// GET /api/users
func (h *EntityHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse{
			ID:       u.ID,
			Name:     u.Name,
			Username: u.Username,
			Email:    u.Email,
			Phone:    u.Phone,
			Website:  u.Website,
			Address:  rawJSONField(u.Address),
			Company:  rawJSONField(u.Company),
		})
	}

	writeJSON(w, resp)
}

// ListPosts は保存済み投稿一覧を返す。userIdで絞り込み可能。
// GET /api/posts?userId=
func (h *EntityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := parseInt64Query(r.URL.Query().Get("userId"), "userId")
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	posts, err := h.service.ListPosts(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		resp = append(resp, postResponse{ID: p.ID, UserID: p.UserID, Title: p.Title, Body: p.Body})
	}

	writeJSON(w, resp)
}

// ListComments は保存済みコメント一覧を返す。postIdで絞り込み可能。
// GET /api/comments?postId=
func (h *EntityHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, apiErr := parseInt64Query(r.URL.Query().Get("postId"), "postId")
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	comments, err := h.service.ListComments(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		resp = append(resp, commentResponse{ID: c.ID, PostID: c.PostID, Name: c.Name, Email: c.Email, Body: c.Body})
	}

	writeJSON(w, resp)
}

// ListAlbums は保存済みアルバム一覧を返す。userIdで絞り込み可能。
// GET /api/albums?userId=
func (h *EntityHandler) ListAlbums(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := parseInt64Query(r.URL.Query().Get("userId"), "userId")
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	albums, err := h.service.ListAlbums(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]albumResponse, 0, len(albums))
	for _, a := range albums {
		resp = append(resp, albumResponse{ID: a.ID, UserID: a.UserID, Title: a.Title})
	}

	writeJSON(w, resp)
}

// ListPhotos は保存済み写真一覧を返す。albumIdで絞り込み可能。
// GET /api/photos?albumId=
func (h *EntityHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	albumID, apiErr := parseInt64Query(r.URL.Query().Get("albumId"), "albumId")
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	photos, err := h.service.ListPhotos(r.Context(), albumID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]photoResponse, 0, len(photos))
	for _, p := range photos {
		resp = append(resp, photoResponse{ID: p.ID, AlbumID: p.AlbumID, Title: p.Title, URL: p.URL, ThumbnailURL: p.ThumbnailURL})
	}

	writeJSON(w, resp)
}

// ListTodos は保存済みTODO一覧を返す。userIdとcompletedで絞り込み可能。
// GET /api/todos?userId=&completed=
func (h *EntityHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, apiErr := parseInt64Query(q.Get("userId"), "userId")
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	completed, apiErr := parseBoolQuery(q.Get("completed"), "completed")
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	todos, err := h.service.ListTodos(r.Context(), userID, completed)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]todoResponse, 0, len(todos))
	for _, t := range todos {
		resp = append(resp, todoResponse{ID: t.ID, UserID: t.UserID, Title: t.Title, Completed: t.Completed})
	}

	writeJSON(w, resp)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
