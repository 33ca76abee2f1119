package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/placemirror/internal/model"
	"github.com/hitoshi/placemirror/internal/remote"
	"github.com/hitoshi/placemirror/internal/security"
)

type mockFetcher struct {
	fetchFunc func(ctx context.Context, endpoint model.Endpoint, filters model.FetchFilters) (*remote.Result, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, endpoint model.Endpoint, filters model.FetchFilters) (*remote.Result, error) {
	return m.fetchFunc(ctx, endpoint, filters)
}

type mockDomainStore struct {
	applyBatchFunc func(ctx context.Context, batch *model.IngestBatch) error
}

func (m *mockDomainStore) ApplyBatch(ctx context.Context, batch *model.IngestBatch) error {
	return m.applyBatchFunc(ctx, batch)
}

type mockFetchLogStore struct {
	insertFunc func(ctx context.Context, endpoint, params, payload string) (*model.FetchLog, error)
	calls      int
}

func (m *mockFetchLogStore) Insert(ctx context.Context, endpoint, params, payload string) (*model.FetchLog, error) {
	m.calls++
	return m.insertFunc(ctx, endpoint, params, payload)
}

func newTestService(fetcher RemoteFetcher, domain DomainStore, logStore FetchLogStore) *Service {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewService(fetcher, NewNormalizer(security.NewTextSanitizer()), domain, logStore, NopMetrics{}, logger)
}

func TestFetchAndStore_Success(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFunc: func(_ context.Context, _ model.Endpoint, _ model.FetchFilters) (*remote.Result, error) {
			return &remote.Result{
				Records: []model.RawRecord{
					{"id": float64(2), "userId": float64(1), "title": "second"},
					{"id": float64(1), "userId": float64(1), "title": "first"},
				},
				Status: 200,
			}, nil
		},
	}
	var appliedBatch *model.IngestBatch
	domain := &mockDomainStore{
		applyBatchFunc: func(_ context.Context, batch *model.IngestBatch) error {
			appliedBatch = batch
			return nil
		},
	}
	var loggedEndpoint, loggedParams, loggedPayload string
	logStore := &mockFetchLogStore{
		insertFunc: func(_ context.Context, endpoint, params, payload string) (*model.FetchLog, error) {
			loggedEndpoint, loggedParams, loggedPayload = endpoint, params, payload
			return &model.FetchLog{ID: 42, Endpoint: endpoint}, nil
		},
	}

	svc := newTestService(fetcher, domain, logStore)
	userID := int64(1)
	result, err := svc.FetchAndStore(context.Background(), model.EndpointPosts, model.FetchFilters{UserID: &userID})
	if err != nil {
		t.Fatalf("FetchAndStore() error = %v", err)
	}

	if result.Count != 2 {
		t.Errorf("Count = %d, want 2", result.Count)
	}
	if result.FetchLogID != 42 {
		t.Errorf("FetchLogID = %d, want 42", result.FetchLogID)
	}
	if result.Params["userId"] != 1 {
		t.Errorf("Params = %v, want userId=1", result.Params)
	}

	// レコードは正準順序でドメインストアに渡る
	if appliedBatch == nil {
		t.Fatal("ApplyBatch was not called")
	}
	if len(appliedBatch.Posts) != 2 || appliedBatch.Posts[0].ID != 1 {
		t.Errorf("batch posts = %+v, want id=1 first", appliedBatch.Posts)
	}
	if len(appliedBatch.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(appliedBatch.Items))
	}

	if loggedEndpoint != "/posts" {
		t.Errorf("logged endpoint = %q, want /posts", loggedEndpoint)
	}
	var params map[string]int64
	if err := json.Unmarshal([]byte(loggedParams), &params); err != nil {
		t.Fatalf("params is not valid JSON: %v", err)
	}
	if params["userId"] != 1 {
		t.Errorf("logged params = %v, want userId=1", params)
	}
	var payload []map[string]any
	if err := json.Unmarshal([]byte(loggedPayload), &payload); err != nil {
		t.Fatalf("payload is not a JSON array: %v", err)
	}
	if len(payload) != 2 {
		t.Errorf("payload length = %d, want 2", len(payload))
	}
}

// TestFetchAndStore_DomainFailureSkipsAuditLog はドメインUPSERT失敗時に
// 監査ログが書き込まれないことを検証する。
func TestFetchAndStore_DomainFailureSkipsAuditLog(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFunc: func(_ context.Context, _ model.Endpoint, _ model.FetchFilters) (*remote.Result, error) {
			return &remote.Result{
				Records: []model.RawRecord{{"id": float64(1), "title": "x"}},
				Status:  200,
			}, nil
		},
	}
	domain := &mockDomainStore{
		applyBatchFunc: func(_ context.Context, _ *model.IngestBatch) error {
			return errors.New("constraint violation")
		},
	}
	logStore := &mockFetchLogStore{
		insertFunc: func(_ context.Context, _, _, _ string) (*model.FetchLog, error) {
			return &model.FetchLog{ID: 1}, nil
		},
	}

	svc := newTestService(fetcher, domain, logStore)
	_, err := svc.FetchAndStore(context.Background(), model.EndpointAlbums, model.FetchFilters{})
	if err == nil {
		t.Fatal("FetchAndStore() error = nil, want error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeStorageFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeStorageFailed)
	}
	if logStore.calls != 0 {
		t.Errorf("audit log insert calls = %d, want 0", logStore.calls)
	}
}

func TestFetchAndStore_RemoteFailurePropagated(t *testing.T) {
	remoteErr := model.NewRemoteFetchError("接続エラー")
	fetcher := &mockFetcher{
		fetchFunc: func(_ context.Context, _ model.Endpoint, _ model.FetchFilters) (*remote.Result, error) {
			return nil, remoteErr
		},
	}
	domain := &mockDomainStore{
		applyBatchFunc: func(_ context.Context, _ *model.IngestBatch) error {
			t.Fatal("ApplyBatch should not be called on fetch failure")
			return nil
		},
	}
	logStore := &mockFetchLogStore{
		insertFunc: func(_ context.Context, _, _, _ string) (*model.FetchLog, error) {
			return &model.FetchLog{ID: 1}, nil
		},
	}

	svc := newTestService(fetcher, domain, logStore)
	_, err := svc.FetchAndStore(context.Background(), model.EndpointUsers, model.FetchFilters{})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeRemoteFetchFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeRemoteFetchFailed)
	}
	if logStore.calls != 0 {
		t.Errorf("audit log insert calls = %d, want 0", logStore.calls)
	}
}

// TestFetchAndStore_SingleObjectPayload は単一オブジェクトレスポンスが
// 配列に包まれずオブジェクトのまま監査ログへ保存されることを検証する。
func TestFetchAndStore_SingleObjectPayload(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFunc: func(_ context.Context, _ model.Endpoint, _ model.FetchFilters) (*remote.Result, error) {
			return &remote.Result{
				Records: []model.RawRecord{{"id": float64(1), "name": "Leanne"}},
				Single:  true,
				Status:  200,
			}, nil
		},
	}
	domain := &mockDomainStore{
		applyBatchFunc: func(_ context.Context, _ *model.IngestBatch) error { return nil },
	}
	var loggedPayload string
	logStore := &mockFetchLogStore{
		insertFunc: func(_ context.Context, _, _, payload string) (*model.FetchLog, error) {
			loggedPayload = payload
			return &model.FetchLog{ID: 7}, nil
		},
	}

	svc := newTestService(fetcher, domain, logStore)
	if _, err := svc.FetchAndStore(context.Background(), model.EndpointUsers, model.FetchFilters{}); err != nil {
		t.Fatalf("FetchAndStore() error = %v", err)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(loggedPayload), &obj); err != nil {
		t.Fatalf("payload is not a JSON object: %v", err)
	}
	if obj["name"] != "Leanne" {
		t.Errorf("payload name = %v, want Leanne", obj["name"])
	}
}

func TestFetchAndStore_AuditInsertFailure(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFunc: func(_ context.Context, _ model.Endpoint, _ model.FetchFilters) (*remote.Result, error) {
			return &remote.Result{
				Records: []model.RawRecord{{"id": float64(1), "title": "t"}},
				Status:  200,
			}, nil
		},
	}
	domain := &mockDomainStore{
		applyBatchFunc: func(_ context.Context, _ *model.IngestBatch) error { return nil },
	}
	logStore := &mockFetchLogStore{
		insertFunc: func(_ context.Context, _, _, _ string) (*model.FetchLog, error) {
			return nil, errors.New("disk full")
		},
	}

	svc := newTestService(fetcher, domain, logStore)
	_, err := svc.FetchAndStore(context.Background(), model.EndpointTodos, model.FetchFilters{})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeStorageFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeStorageFailed)
	}
}

// upsertingDomainStore は外部IDキーの全カラム置換UPSERTと
// 追記専用の正規化アイテムログをインメモリで再現するDomainStore。
type upsertingDomainStore struct {
	posts map[int64]model.Post
	items []model.NormalizedItem
}

func newUpsertingDomainStore() *upsertingDomainStore {
	return &upsertingDomainStore{posts: map[int64]model.Post{}}
}

func (s *upsertingDomainStore) ApplyBatch(_ context.Context, batch *model.IngestBatch) error {
	for _, p := range batch.Posts {
		s.posts[p.ID] = p
	}
	s.items = append(s.items, batch.Items...)
	return nil
}

// 同一レコードを2回フェッチしても、ドメイン行は外部IDごとに1行のまま、
// 正規化アイテムとフェッチログはフェッチ回数分だけ蓄積される。
func TestFetchAndStore_RepeatedFetchIsIdempotentForDomainRows(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFunc: func(_ context.Context, _ model.Endpoint, _ model.FetchFilters) (*remote.Result, error) {
			return &remote.Result{
				Records: []model.RawRecord{
					{"id": float64(1), "userId": float64(1), "title": "first"},
					{"id": float64(2), "userId": float64(1), "title": "second"},
				},
				Status: 200,
			}, nil
		},
	}
	store := newUpsertingDomainStore()
	logStore := &mockFetchLogStore{
		insertFunc: func(_ context.Context, endpoint, _, _ string) (*model.FetchLog, error) {
			return &model.FetchLog{ID: 1, Endpoint: endpoint}, nil
		},
	}

	svc := newTestService(fetcher, store, logStore)
	for i := 0; i < 2; i++ {
		if _, err := svc.FetchAndStore(context.Background(), model.EndpointPosts, model.FetchFilters{}); err != nil {
			t.Fatalf("FetchAndStore() #%d error = %v", i+1, err)
		}
	}

	if len(store.posts) != 2 {
		t.Errorf("domain rows = %d, want 2 (one per external id)", len(store.posts))
	}
	if got := store.posts[1].Title; got == nil || *got != "first" {
		t.Errorf("posts[1].Title = %v, want \"first\"", got)
	}
	if len(store.items) != 4 {
		t.Errorf("normalized items = %d, want 4 (append-only, 2 per fetch)", len(store.items))
	}
	if logStore.calls != 2 {
		t.Errorf("fetch log inserts = %d, want 2 (append-only)", logStore.calls)
	}
}
