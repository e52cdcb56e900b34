package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultFetchTimeout はURL取得1件あたりの上限時間
	DefaultFetchTimeout = 10 * time.Second

	// DefaultMaxBytes はURL取得1件あたりの最大サイズ
	DefaultMaxBytes int64 = 32 << 20

	// DefaultUserAgent はURL取得時のUser-Agent
	DefaultUserAgent = "multisource"
)

// Fetcher はリモートの画像を取得する機能を抽象化する
// 実装は ctx の期限を守り、期限切れの場合はエラーを返さなければならない
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher はnet/httpを使ったFetcherの標準実装
type HTTPFetcher struct {
	Client    *http.Client
	Timeout   time.Duration // 0以下の場合は DefaultFetchTimeout
	MaxBytes  int64         // 0以下の場合は DefaultMaxBytes
	UserAgent string
}

// NewHTTPFetcher は新しいHTTPFetcherを作成する
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{},
		Timeout:   timeout,
		MaxBytes:  DefaultMaxBytes,
		UserAgent: DefaultUserAgent,
	}
}

// Fetch はURLにGETリクエストを送り、2xxの場合にボディを返す
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("画像の取得に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("予期しないステータスコード: %d", resp.StatusCode)
	}

	// 上限+1バイトまで読んで超過を検出する
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンスの読み込みに失敗: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("レスポンスが大きすぎます: 上限 %d バイト", maxBytes)
	}

	return data, nil
}
