package engine

//go:generate mockgen -source=interfaces.go -destination=../mocks/mock_engine.go -package=mocks

import "context"

// Locker はMACアドレス単位の排他を提供するインターフェース。
// 複数のvmamプロセスが同じIDを同時に変更しないようにする。
type Locker interface {
	// TryLock はロックを取得する。他で保持中の場合はok=false
	TryLock(ctx context.Context, key string) (token string, ok bool, err error)
	// Unlock はtokenが一致する場合のみロックを解放する
	Unlock(ctx context.Context, key, token string) error
}

// Reconciler は照合処理のインターフェース。スケジューラーとCLIが使う。
type Reconciler interface {
	Reconcile(ctx context.Context, req *Request) (*Outcome, error)
}
