package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/placemirror/internal/model"
)

type mockItemService struct {
	listFunc           func(ctx context.Context, query model.ItemQuery) ([]*model.NormalizedItem, error)
	listAllOrderedFunc func(ctx context.Context) ([]*model.NormalizedItem, error)
}

func (m *mockItemService) List(ctx context.Context, query model.ItemQuery) ([]*model.NormalizedItem, error) {
	return m.listFunc(ctx, query)
}

func (m *mockItemService) ListAllOrdered(ctx context.Context) ([]*model.NormalizedItem, error) {
	return m.listAllOrderedFunc(ctx)
}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestListItems_ParsesFilters(t *testing.T) {
	var gotQuery model.ItemQuery
	service := &mockItemService{
		listFunc: func(_ context.Context, query model.ItemQuery) ([]*model.NormalizedItem, error) {
			gotQuery = query
			return []*model.NormalizedItem{}, nil
		},
	}
	h := NewItemHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/items?endpoint=/todos&userId=2&completed=0&limit=10&offset=5", nil)
	rec := httptest.NewRecorder()
	h.ListItems(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if gotQuery.Endpoint == nil || *gotQuery.Endpoint != model.EndpointTodos {
		t.Errorf("endpoint = %v, want /todos", gotQuery.Endpoint)
	}
	if gotQuery.UserID == nil || *gotQuery.UserID != 2 {
		t.Errorf("userId = %v, want 2", gotQuery.UserID)
	}
	// completed=0 はfalseとして解釈される
	if gotQuery.Completed == nil || *gotQuery.Completed {
		t.Errorf("completed = %v, want false", gotQuery.Completed)
	}
	if gotQuery.Limit != 10 {
		t.Errorf("limit = %d, want 10", gotQuery.Limit)
	}
	if gotQuery.Offset != 5 {
		t.Errorf("offset = %d, want 5", gotQuery.Offset)
	}
}

func TestListItems_InvalidEndpoint(t *testing.T) {
	service := &mockItemService{
		listFunc: func(_ context.Context, _ model.ItemQuery) ([]*model.NormalizedItem, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	h := NewItemHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/items?endpoint=/bogus", nil)
	rec := httptest.NewRecorder()
	h.ListItems(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Code != model.ErrCodeUnsupportedEndpoint {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnsupportedEndpoint)
	}
}

func TestListItems_InvalidCompleted(t *testing.T) {
	service := &mockItemService{
		listFunc: func(_ context.Context, _ model.ItemQuery) ([]*model.NormalizedItem, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	h := NewItemHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/items?completed=maybe", nil)
	rec := httptest.NewRecorder()
	h.ListItems(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListItems_ZeroLimitRejected(t *testing.T) {
	service := &mockItemService{
		listFunc: func(_ context.Context, _ model.ItemQuery) ([]*model.NormalizedItem, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	h := NewItemHandler(service)

	// limit=0はデフォルト(100)への暗黙置換を防ぐため明示的に拒否する
	req := httptest.NewRequest(http.MethodGet, "/api/items?limit=0", nil)
	rec := httptest.NewRecorder()
	h.ListItems(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidRequest)
	}
}

func TestListItems_ReturnsItems(t *testing.T) {
	service := &mockItemService{
		listFunc: func(_ context.Context, _ model.ItemQuery) ([]*model.NormalizedItem, error) {
			return []*model.NormalizedItem{
				{ID: 1, Endpoint: model.EndpointUsers, ItemID: int64Ptr(1), Name: strPtr("Leanne")},
			}, nil
		},
	}
	h := NewItemHandler(service)

	rec := httptest.NewRecorder()
	h.ListItems(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))

	var resp []itemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("len = %d, want 1", len(resp))
	}
	if resp[0].Name == nil || *resp[0].Name != "Leanne" {
		t.Errorf("name = %v, want Leanne", resp[0].Name)
	}
	if resp[0].Title != nil {
		t.Errorf("title = %v, want null", resp[0].Title)
	}
}

// TestStructuredItems はエンドポイント、親キーの2段階グルーピングを検証する。
func TestStructuredItems(t *testing.T) {
	service := &mockItemService{
		listAllOrderedFunc: func(_ context.Context) ([]*model.NormalizedItem, error) {
			return []*model.NormalizedItem{
				{ID: 1, Endpoint: model.EndpointUsers, ItemID: int64Ptr(1)},
				{ID: 2, Endpoint: model.EndpointPosts, ItemID: int64Ptr(10), UserID: int64Ptr(1)},
				{ID: 3, Endpoint: model.EndpointPosts, ItemID: int64Ptr(11), UserID: int64Ptr(1)},
				{ID: 4, Endpoint: model.EndpointPosts, ItemID: int64Ptr(12), UserID: int64Ptr(2)},
				{ID: 5, Endpoint: model.EndpointComments, ItemID: int64Ptr(100), PostID: int64Ptr(10)},
				{ID: 6, Endpoint: model.EndpointPhotos, ItemID: int64Ptr(200), AlbumID: int64Ptr(3)},
				{ID: 7, Endpoint: model.EndpointTodos, ItemID: int64Ptr(300), Completed: boolPtr(false)},
			}, nil
		},
	}
	h := NewItemHandler(service)

	rec := httptest.NewRecorder()
	h.StructuredItems(rec, httptest.NewRequest(http.MethodGet, "/api/structured", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]map[string][]itemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}

	if len(resp["/users"]["root"]) != 1 {
		t.Errorf(`users root = %d items, want 1`, len(resp["/users"]["root"]))
	}
	if len(resp["/posts"]["user:1"]) != 2 {
		t.Errorf(`posts user:1 = %d items, want 2`, len(resp["/posts"]["user:1"]))
	}
	if len(resp["/posts"]["user:2"]) != 1 {
		t.Errorf(`posts user:2 = %d items, want 1`, len(resp["/posts"]["user:2"]))
	}
	if len(resp["/comments"]["post:10"]) != 1 {
		t.Errorf(`comments post:10 = %d items, want 1`, len(resp["/comments"]["post:10"]))
	}
	if len(resp["/photos"]["album:3"]) != 1 {
		t.Errorf(`photos album:3 = %d items, want 1`, len(resp["/photos"]["album:3"]))
	}
	// 親IDが欠落したTODOはrootに入る
	if len(resp["/todos"]["root"]) != 1 {
		t.Errorf(`todos root = %d items, want 1`, len(resp["/todos"]["root"]))
	}
}
