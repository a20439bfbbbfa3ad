// Package inference は外部の言語モデル推論サービスとの連携機能を提供する。
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultTimeout は推論リクエストの既定タイムアウト。
	DefaultTimeout = 120 * time.Second
	// maxResponseSize はレスポンスボディの最大読み取りサイズ。
	maxResponseSize = 4 << 20
)

// ErrEmptyReply は推論サービスが空の応答を返した場合のエラー。
var ErrEmptyReply = errors.New("inference backend returned an empty reply")

// StatusError は推論サービスが2xx以外のステータスを返した場合のエラー。
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference backend error: %s", e.Status)
}

// Request は推論サービスへのリクエスト。
// Modelを指定した場合、AgeとVaultは送信しない。
type Request struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
	Age     *int   `json:"age,omitempty"`
	Vault   string `json:"vault,omitempty"`
}

// Response は推論サービスからの応答。
type Response struct {
	Reply     string `json:"reply"`
	ModelUsed string `json:"model_used,omitempty"`
}

// Generator は応答生成のインターフェース。
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Client は推論サービスのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
}

// NewClient はClientの新しいインスタンスを生成する。
// timeoutが0以下の場合はDefaultTimeoutを使用する。
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		endpoint:   endpoint,
	}
}

// Generate はメッセージを推論サービスに送信し、応答を返す。
// 2xx以外のステータス、不正なJSON、空の応答はエラーとする。リトライは行わない。
func (c *Client) Generate(ctx context.Context, in Request) (*Response, error) {
	if in.Model != "" {
		in.Age = nil
		in.Vault = ""
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("推論サービスの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("model", in.Model),
		)
		return nil, fmt.Errorf("推論サービスの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("推論サービスがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("model", in.Model),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		c.logger.Error("推論サービスのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if out.Reply == "" {
		return nil, ErrEmptyReply
	}

	return &out, nil
}

// compile-time interface check
var _ Generator = (*Client)(nil)
