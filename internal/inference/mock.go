package inference

import (
	"context"
	"sync"
)

// MockGenerator はGeneratorのテストダブル。
// 呼び出されたリクエストを記録し、設定された応答を返す。
// ResponseとErrがどちらも未設定の場合はErrEmptyReplyを返す。
type MockGenerator struct {
	mu       sync.Mutex
	Response *Response
	Err      error
	Calls    []Request
}

// Generate は呼び出しを記録し、設定済みの応答を返す。
func (m *MockGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Response == nil {
		return nil, ErrEmptyReply
	}
	return m.Response, nil
}
