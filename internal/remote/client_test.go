package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/placemirror/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func int64Ptr(v int64) *int64 { return &v }

func TestClient_Fetch_ArrayResponse(t *testing.T) {
	var gotPath, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":1,"userId":1,"title":"a"},{"id":2,"userId":1,"title":"b"}]`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client(), 1<<20, discardLogger())

	result, err := c.Fetch(context.Background(), model.EndpointPosts, model.FetchFilters{UserID: int64Ptr(1)})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if gotPath != "/posts" {
		t.Errorf("request path = %q, want %q", gotPath, "/posts")
	}
	if gotQuery != "userId=1" {
		t.Errorf("request query = %q, want %q", gotQuery, "userId=1")
	}
	if result.Single {
		t.Error("array response should not be marked single")
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(result.Records))
	}
	if result.Records[0]["title"] != "a" {
		t.Errorf("records[0].title = %v, want %q", result.Records[0]["title"], "a")
	}
	if result.Status != http.StatusOK {
		t.Errorf("status = %d, want %d", result.Status, http.StatusOK)
	}
}

func TestClient_Fetch_SingleObjectResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":7,"name":"Leanne Graham"}`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client(), 1<<20, discardLogger())

	result, err := c.Fetch(context.Background(), model.EndpointUsers, model.FetchFilters{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if !result.Single {
		t.Error("object response should be marked single")
	}
	if len(result.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(result.Records))
	}
	if result.Records[0]["name"] != "Leanne Graham" {
		t.Errorf("records[0].name = %v, want %q", result.Records[0]["name"], "Leanne Graham")
	}
}

func TestClient_Fetch_EmptyFiltersOmitQueryString(t *testing.T) {
	var gotURL string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		io.WriteString(w, `[]`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client(), 1<<20, discardLogger())

	if _, err := c.Fetch(context.Background(), model.EndpointTodos, model.FetchFilters{}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if gotURL != "/todos" {
		t.Errorf("request URL = %q, want %q (no query string)", gotURL, "/todos")
	}
}

func TestClient_Fetch_NonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client(), 1<<20, discardLogger())

	_, err := c.Fetch(context.Background(), model.EndpointUsers, model.FetchFilters{})
	if err == nil {
		t.Fatal("Fetch should fail on non-2xx status")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error should be APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeRemoteFetchFailed {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeRemoteFetchFailed)
	}
	if !strings.Contains(apiErr.Message, "404") {
		t.Errorf("error message should carry the status code, got %q", apiErr.Message)
	}
}

func TestClient_Fetch_TransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // 即座にクローズして接続エラーを誘発する

	c := NewClient(ts.URL, &http.Client{Timeout: time.Second}, 1<<20, discardLogger())

	_, err := c.Fetch(context.Background(), model.EndpointUsers, model.FetchFilters{})
	if err == nil {
		t.Fatal("Fetch should fail on transport error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error should be APIError, got %T", err)
	}
	if apiErr.Category != "remote" {
		t.Errorf("error category = %q, want %q", apiErr.Category, "remote")
	}
}

func TestClient_Fetch_InvalidJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{not json`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client(), 1<<20, discardLogger())

	if _, err := c.Fetch(context.Background(), model.EndpointUsers, model.FetchFilters{}); err == nil {
		t.Fatal("Fetch should fail on invalid JSON")
	}
}

func TestClient_Fetch_ScalarJSONRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `42`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client(), 1<<20, discardLogger())

	if _, err := c.Fetch(context.Background(), model.EndpointUsers, model.FetchFilters{}); err == nil {
		t.Fatal("Fetch should reject scalar JSON payloads")
	}
}

func TestClient_Fetch_SkipsNonObjectArrayElements(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1},"garbage",2,{"id":3}]`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client(), 1<<20, discardLogger())

	result, err := c.Fetch(context.Background(), model.EndpointUsers, model.FetchFilters{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Errorf("records = %d, want 2 (non-object elements skipped)", len(result.Records))
	}
}
