// Package remote はリモートREST APIからのコレクション取得を提供する。
package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"context"

	"github.com/hitoshi/placemirror/internal/model"
)

// Result はリモートフェッチ1回分のデコード済み結果を表す。
type Result struct {
	// Records はデコード済みの生レコード。レスポンスが単一オブジェクトの
	// 場合も1要素のスライスとして保持する。
	Records []model.RawRecord
	// Single はレスポンスが配列ではなく単一オブジェクトだったことを示す。
	Single bool
	// Status はリモートAPIのHTTPステータスコード。
	Status int
}

// Client はリモートAPIのHTTPクライアント。
// SSRF防止機能付きのhttp.Clientを外部から注入する（テストでは素のClientを使う）。
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxBodySize int64
	logger      *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLの末尾スラッシュは除去される。
func NewClient(baseURL string, httpClient *http.Client, maxBodySize int64, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Fetch は指定エンドポイントのコレクションを取得してデコードする。
// filtersの空キーはクエリ文字列から落とされる。
// 非成功ステータスおよびトランスポート失敗はAPIError（remote）として返す。
// リトライは行わない。
func (c *Client) Fetch(ctx context.Context, endpoint model.Endpoint, filters model.FetchFilters) (*Result, error) {
	start := time.Now()

	reqURL := c.baseURL + string(endpoint)
	if query := filters.Values().Encode(); query != "" {
		reqURL += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "Placemirror/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("リモートAPIへのリクエストに失敗しました",
			slog.String("endpoint", string(endpoint)),
			slog.String("url", reqURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewRemoteFetchError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("リモートAPIが非成功ステータスを返しました",
			slog.String("endpoint", string(endpoint)),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewRemoteFetchError(fmt.Sprintf("HTTPステータス %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, model.NewRemoteFetchError(fmt.Sprintf("レスポンス読み取り失敗: %s", err.Error()))
	}

	result, err := decodeBody(body)
	if err != nil {
		c.logger.Error("リモートAPIレスポンスのデコードに失敗しました",
			slog.String("endpoint", string(endpoint)),
			slog.String("error", err.Error()),
		)
		return nil, model.NewRemoteFetchError(fmt.Sprintf("JSONデコード失敗: %s", err.Error()))
	}
	result.Status = resp.StatusCode

	c.logger.Info("リモートフェッチが完了しました",
		slog.String("endpoint", string(endpoint)),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("records", len(result.Records)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return result, nil
}

// decodeBody はレスポンスボディをデコードする。
// 配列・単一オブジェクトの両方を受け付ける。配列内の非オブジェクト要素は読み飛ばす。
func decodeBody(body []byte) (*Result, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}

	switch v := decoded.(type) {
	case []any:
		records := make([]model.RawRecord, 0, len(v))
		for _, elem := range v {
			if rec, ok := elem.(map[string]any); ok {
				records = append(records, rec)
			}
		}
		return &Result{Records: records}, nil
	case map[string]any:
		return &Result{Records: []model.RawRecord{v}, Single: true}, nil
	default:
		return nil, fmt.Errorf("unexpected JSON payload of type %T", decoded)
	}
}
