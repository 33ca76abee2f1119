package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/placemirror/internal/model"
	"github.com/hitoshi/placemirror/internal/remote"
)

// RemoteFetcher はリモートAPIフェッチのインターフェース。
type RemoteFetcher interface {
	Fetch(ctx context.Context, endpoint model.Endpoint, filters model.FetchFilters) (*remote.Result, error)
}

// DomainStore はドメインテーブルへのバッチ適用のインターフェース。
type DomainStore interface {
	// ApplyBatch はバッチ全体を単一トランザクションで適用する。
	ApplyBatch(ctx context.Context, batch *model.IngestBatch) error
}

// FetchLogStore はフェッチ監査ログの追記インターフェース。
type FetchLogStore interface {
	// Insert は監査ログ行を1件追記する。
	Insert(ctx context.Context, endpoint, params, payload string) (*model.FetchLog, error)
}

// MetricsRecorder はパイプラインのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordFetchSuccess(endpoint string)
	RecordFetchFailure(endpoint string)
	RecordRemoteStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordRowsUpserted(count int)
	RecordItemsLogged(count int)
}

// NopMetrics は何も記録しないMetricsRecorder。テストで使用する。
type NopMetrics struct{}

func (NopMetrics) RecordFetchSuccess(string)        {}
func (NopMetrics) RecordFetchFailure(string)        {}
func (NopMetrics) RecordRemoteStatus(int)           {}
func (NopMetrics) RecordFetchLatency(time.Duration) {}
func (NopMetrics) RecordRowsUpserted(int)           {}
func (NopMetrics) RecordItemsLogged(int)            {}

// Result はフェッチ・保存パイプライン1回分の結果を表す。
type Result struct {
	Endpoint   model.Endpoint
	Params     map[string]int64
	Count      int
	FetchLogID int64
	Records    []model.RawRecord // 正準順序でソート済み
}

// Service はフェッチ→ソート→正規化→保存のパイプラインを実行する。
// 1リクエストあたり、リモートへのGET1回、ドメインUPSERTトランザクション1回、
// 監査ログINSERT1回を順番に行う。リトライ・キューイングは行わない。
type Service struct {
	fetcher    RemoteFetcher
	normalizer *Normalizer
	domain     DomainStore
	logStore   FetchLogStore
	metrics    MetricsRecorder
	logger     *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	fetcher RemoteFetcher,
	normalizer *Normalizer,
	domain DomainStore,
	logStore FetchLogStore,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		fetcher:    fetcher,
		normalizer: normalizer,
		domain:     domain,
		logStore:   logStore,
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchAndStore はパイプライン全体を実行する。
// ドメインUPSERTが途中で失敗した場合はバッチ全体がロールバックされ、
// 監査ログ行も書き込まれない（監査INSERTはドメイントランザクションの
// コミット後にのみ実行される）。
func (s *Service) FetchAndStore(ctx context.Context, endpoint model.Endpoint, filters model.FetchFilters) (*Result, error) {
	fetchStart := time.Now()
	fetched, err := s.fetcher.Fetch(ctx, endpoint, filters)
	s.metrics.RecordFetchLatency(time.Since(fetchStart))
	if err != nil {
		s.metrics.RecordFetchFailure(string(endpoint))
		return nil, err
	}
	s.metrics.RecordRemoteStatus(fetched.Status)

	sorted := SortRecords(endpoint, fetched.Records)
	batch := s.normalizer.BuildBatch(endpoint, sorted, time.Now().UTC())

	if err := s.domain.ApplyBatch(ctx, batch); err != nil {
		s.metrics.RecordFetchFailure(string(endpoint))
		s.logger.Error("ドメインバッチの適用に失敗しました",
			slog.String("endpoint", string(endpoint)),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageError(err.Error())
	}

	params, payload, err := serializeForAudit(filters, sorted, fetched.Single)
	if err != nil {
		return nil, fmt.Errorf("監査ログのシリアライズに失敗: %w", err)
	}

	fetchLog, err := s.logStore.Insert(ctx, string(endpoint), params, payload)
	if err != nil {
		s.metrics.RecordFetchFailure(string(endpoint))
		s.logger.Error("監査ログの追記に失敗しました",
			slog.String("endpoint", string(endpoint)),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageError(err.Error())
	}

	s.metrics.RecordFetchSuccess(string(endpoint))
	s.metrics.RecordRowsUpserted(batch.Size())
	s.metrics.RecordItemsLogged(len(batch.Items))

	s.logger.Info("フェッチ・保存パイプラインが完了しました",
		slog.String("endpoint", string(endpoint)),
		slog.Int("records", len(sorted)),
		slog.Int("domain_rows", batch.Size()),
		slog.Int64("fetch_log_id", fetchLog.ID),
	)

	return &Result{
		Endpoint:   endpoint,
		Params:     filters.Map(),
		Count:      len(sorted),
		FetchLogID: fetchLog.ID,
		Records:    sorted,
	}, nil
}

// serializeForAudit は監査ログ保存用にフィルタとペイロードをJSON化する。
// 単一オブジェクトのレスポンスは配列に包まずオブジェクトのまま保存する。
func serializeForAudit(filters model.FetchFilters, sorted []model.RawRecord, single bool) (params string, payload string, err error) {
	paramsData, err := json.Marshal(filters.Map())
	if err != nil {
		return "", "", err
	}

	var payloadData []byte
	if single && len(sorted) == 1 {
		payloadData, err = json.Marshal(sorted[0])
	} else {
		payloadData, err = json.Marshal(sorted)
	}
	if err != nil {
		return "", "", err
	}

	return string(paramsData), string(payloadData), nil
}
