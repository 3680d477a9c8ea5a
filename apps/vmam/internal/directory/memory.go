package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/oyaguma3/vmam/pkg/apperr"
)

// 操作名（DirectoryError.Op）
const (
	OpFind       = "find"
	OpCreate     = "create"
	OpModify     = "modify"
	OpSetEnabled = "set_enabled"
	OpDelete     = "delete"
	OpPing       = "ping"
)

// MemoryClient はメモリ上のディレクトリ。テストとドライランで使う。
type MemoryClient struct {
	mu         sync.Mutex
	identities map[string]*Identity
	failNext   map[string][]error
	unreach    bool
	mutations  int
	calls      map[string]int
}

// NewMemoryClient は空のMemoryClientを生成する。
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		identities: make(map[string]*Identity),
		failNext:   make(map[string][]error),
		calls:      make(map[string]int),
	}
}

// Seed はIDを直接登録する。
func (m *MemoryClient) Seed(identities ...*Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range identities {
		m.identities[normKey(i.Key)] = i.Clone()
	}
}

// Get は登録済みIDのコピーを返す。
func (m *MemoryClient) Get(key string) (*Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.identities[normKey(key)]
	return i.Clone(), ok
}

// Len は登録件数を返す。
func (m *MemoryClient) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.identities)
}

// FailNext は次回の指定操作でerrを返すよう設定する。複数回呼ぶと順に消費される。
func (m *MemoryClient) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[op] = append(m.failNext[op], err)
}

// SetReachable はPingの結果を切り替える。
func (m *MemoryClient) SetReachable(reachable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreach = !reachable
}

// Mutations は成功した変更操作の回数を返す。
func (m *MemoryClient) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

// Calls は操作ごとの呼び出し回数を返す（失敗を含む）。
func (m *MemoryClient) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// FindByMAC はIDを検索する。
func (m *MemoryClient) FindByMAC(ctx context.Context, key string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpFind, key); err != nil {
		return nil, err
	}
	i, ok := m.identities[normKey(key)]
	if !ok {
		return nil, nil
	}
	return i.Clone(), nil
}

// Create はIDを作成する。既存キーはConflict。
func (m *MemoryClient) Create(ctx context.Context, identity *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpCreate, identity.Key); err != nil {
		return err
	}
	k := normKey(identity.Key)
	if _, ok := m.identities[k]; ok {
		return apperr.NewDirectoryError(apperr.DirectoryConflict, OpCreate, identity.Key, nil)
	}
	m.identities[k] = identity.Clone()
	m.mutations++
	return nil
}

// Modify は差分を適用する。
func (m *MemoryClient) Modify(ctx context.Context, key string, diff *AttributeDiff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpModify, key); err != nil {
		return err
	}
	i, ok := m.identities[normKey(key)]
	if !ok {
		return apperr.NewDirectoryError(apperr.DirectoryNotFound, OpModify, key, nil)
	}
	if diff.IsEmpty() {
		return nil
	}
	diff.applyTo(i)
	m.mutations++
	return nil
}

// SetEnabled は有効フラグを設定する。
func (m *MemoryClient) SetEnabled(ctx context.Context, key string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpSetEnabled, key); err != nil {
		return err
	}
	i, ok := m.identities[normKey(key)]
	if !ok {
		return apperr.NewDirectoryError(apperr.DirectoryNotFound, OpSetEnabled, key, nil)
	}
	i.Enabled = enabled
	m.mutations++
	return nil
}

// Delete はIDを削除する。
func (m *MemoryClient) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDelete, key); err != nil {
		return err
	}
	k := normKey(key)
	if _, ok := m.identities[k]; !ok {
		return apperr.NewDirectoryError(apperr.DirectoryNotFound, OpDelete, key, nil)
	}
	delete(m.identities, k)
	m.mutations++
	return nil
}

// Ping は到達性を返す。
func (m *MemoryClient) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpPing, ""); err != nil {
		return err
	}
	if m.unreach {
		return apperr.NewDirectoryError(apperr.DirectoryUnavailable, OpPing, "", nil)
	}
	return nil
}

// begin は呼び出しを記録し、キャンセルと注入エラーを確認する。m.muを保持して呼ぶこと。
func (m *MemoryClient) begin(ctx context.Context, op, key string) error {
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return apperr.NewDirectoryError(apperr.DirectoryTimeout, op, key, err)
	}
	if q := m.failNext[op]; len(q) > 0 {
		m.failNext[op] = q[1:]
		return q[0]
	}
	return nil
}

func normKey(key string) string {
	return strings.ToLower(key)
}
