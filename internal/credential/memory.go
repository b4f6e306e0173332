package credential

import "sync"

// Memory はプロセス内だけに値を保持する保存先。
// テストで使用する。PersistentとCookieの両方を満たす。
type Memory struct {
	mu    sync.Mutex
	token string
}

// NewMemory は空のMemoryを生成する。
func NewMemory() *Memory {
	return &Memory{}
}

// Get は保持しているトークンを返す。
func (m *Memory) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Set はトークンを保持する。
func (m *Memory) Set(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Delete はトークンを破棄する。
func (m *Memory) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
