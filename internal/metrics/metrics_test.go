package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/placemirror/internal/ingest"
)

// TestCollector_ImplementsMetricsRecorder はCollectorがingest.MetricsRecorderを実装することを検証する。
func TestCollector_ImplementsMetricsRecorder(t *testing.T) {
	// コンパイル時チェック：Collectorがingest.MetricsRecorderを満たすことを検証
	var _ ingest.MetricsRecorder = (*Collector)(nil)
}

func TestCollector_RecordsAndExposes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetchSuccess("/users")
	c.RecordFetchSuccess("/users")
	c.RecordFetchFailure("/posts")
	c.RecordRemoteStatus(200)
	c.RecordFetchLatency(150 * time.Millisecond)
	c.RecordRowsUpserted(10)
	c.RecordItemsLogged(10)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	checks := []string{
		`placemirror_fetch_success_total{endpoint="/users"} 2`,
		`placemirror_fetch_fail_total{endpoint="/posts"} 1`,
		`placemirror_remote_status_total{status_code="200"} 1`,
		`placemirror_rows_upserted_total 10`,
		`placemirror_items_logged_total 10`,
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output does not contain %q", want)
		}
	}
}

func TestNewCollector_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("second registration did not panic")
		}
	}()
	NewCollector(reg)
}
