package testutil

import (
	"context"
	"sync"

	"multisource/internal/source"
)

// MockResolver はテスト用のResolver実装
// Payloads を返し、Block が設定されていれば閉じられるまで待機する
type MockResolver struct {
	mu       sync.Mutex
	Payloads []source.Payload
	Err      error
	Block    chan struct{}
	Calls    int
	Last     []source.Descriptor
}

func (m *MockResolver) Resolve(ctx context.Context, descriptors []source.Descriptor) (*source.Result, error) {
	m.mu.Lock()
	m.Calls++
	m.Last = append([]source.Descriptor(nil), descriptors...)
	block := m.Block
	payloads := append([]source.Payload(nil), m.Payloads...)
	err := m.Err
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(descriptors) == 0 {
		return nil, source.ErrNoSources
	}
	if err != nil {
		return nil, err
	}

	result := &source.Result{Payloads: payloads}
	for _, d := range descriptors {
		result.Sources = append(result.Sources, source.SourceReport{Descriptor: d, Kind: source.KindFile})
	}
	return result, nil
}

// SetPayloads は次回以降の解決結果をスレッドセーフに差し替える
func (m *MockResolver) SetPayloads(payloads ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Payloads = m.Payloads[:0:0]
	for _, p := range payloads {
		m.Payloads = append(m.Payloads, source.Payload(p))
	}
}

// SetBlock は解決処理を待機させるチャンネルを設定する
func (m *MockResolver) SetBlock(block chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Block = block
}

// GetCalls は Resolve の呼び出し回数を返す
func (m *MockResolver) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// GetLast は最後に渡された記述子を返す
func (m *MockResolver) GetLast() []source.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]source.Descriptor(nil), m.Last...)
}
