// Package practicum はYandex Practicumのhomework_statuses APIとの連携を提供する。
// 認証付きGETでのステータス取得と、レスポンスのスキーマ検証を含む。
package practicum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/hwnotify/internal/model"
)

const (
	// defaultMaxBodySize はレスポンスボディの読み取り上限（1MiB）。
	defaultMaxBodySize = 1 << 20
	// errorBodySnippet は非200応答時にエラーへ含めるボディの最大バイト数。
	errorBodySnippet = 512
)

// ClientConfig はClientの接続設定。
type ClientConfig struct {
	Endpoint    string
	Token       string
	MaxBodySize int64
}

// Client はhomework_statuses APIのクライアント。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	endpoint    string
	token       string
	maxBodySize int64
	now         func() time.Time
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientのTimeoutがリクエスト全体のタイムアウトになる。
func NewClient(httpClient *http.Client, logger *slog.Logger, cfg ClientConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	maxBodySize := cfg.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		endpoint:    cfg.Endpoint,
		token:       cfg.Token,
		maxBodySize: maxBodySize,
		now:         time.Now,
	}
}

// GetAPIAnswer はfrom_date=cursorでステータス一覧を取得し、JSONボディをそのまま返す。
// cursorが0以下の場合は現在時刻を使用する。
//
// トランスポート失敗はNetworkError、200以外はHTTPStatusError、
// JSONとして不正なボディはTypeKindErrorを返す。
func (c *Client) GetAPIAnswer(ctx context.Context, cursor int64) (json.RawMessage, error) {
	if cursor <= 0 {
		cursor = c.now().Unix()
	}

	req, err := c.buildRequest(ctx, cursor)
	if err != nil {
		return nil, model.NewNetworkError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("レビューAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.Int64("from_date", cursor),
		)
		return nil, model.NewNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodySnippet))
		body := strings.TrimSpace(string(snippet))
		c.logger.Error("レビューAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.Int64("from_date", cursor),
			slog.String("body", body),
		)
		return nil, model.NewHTTPStatusError(resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, model.NewNetworkError(fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err))
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, model.NewNetworkError(fmt.Errorf("レスポンスボディが上限 %d バイトを超えています", c.maxBodySize))
	}

	if !json.Valid(body) {
		return nil, model.NewTypeKindError("ответ не является JSON", nil)
	}

	c.logger.Debug("レビューAPIからステータスを取得しました",
		slog.Int("http_status", resp.StatusCode),
		slog.Int64("from_date", cursor),
		slog.Int("body_bytes", len(body)),
	)

	return json.RawMessage(body), nil
}

func (c *Client) buildRequest(ctx context.Context, cursor int64) (*http.Request, error) {
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("from_date", strconv.FormatInt(cursor, 10))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "hwnotify/1.0")

	return req, nil
}
