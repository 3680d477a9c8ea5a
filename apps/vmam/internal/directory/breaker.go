package directory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/pkg/apperr"
)

// BreakerClient はCircuit Breakerで包んだClient。
// Unavailable/Timeoutが続くとOpenになり、Open中はディレクトリへ送らずUnavailableを返す。
type BreakerClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerClient は新しいBreakerClientを生成する。
func NewBreakerClient(inner Client) *BreakerClient {
	cbSettings := gobreaker.Settings{
		Name:        config.CBName,
		MaxRequests: config.CBMaxRequests,
		Interval:    config.CBInterval,
		Timeout:     config.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.CBFailureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				slog.Warn("circuit breaker opened",
					"event_id", "CB_OPEN",
					"cb_name", name,
				)
			case gobreaker.StateHalfOpen:
				slog.Info("circuit breaker half-open",
					"event_id", "CB_HALF_OPEN",
					"cb_name", name,
				)
			case gobreaker.StateClosed:
				slog.Info("circuit breaker closed",
					"event_id", "CB_CLOSE",
					"cb_name", name,
				)
			}
		},
	}
	return &BreakerClient{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// State は現在のCircuit Breaker状態を返す。
func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}

// FindByMAC はCircuit Breaker経由で検索する。
func (b *BreakerClient) FindByMAC(ctx context.Context, key string) (*Identity, error) {
	var identity *Identity
	err := b.execute(OpFind, key, func() error {
		var err error
		identity, err = b.inner.FindByMAC(ctx, key)
		return err
	})
	return identity, err
}

// Create はCircuit Breaker経由で作成する。
func (b *BreakerClient) Create(ctx context.Context, identity *Identity) error {
	return b.execute(OpCreate, identity.Key, func() error {
		return b.inner.Create(ctx, identity)
	})
}

// Modify はCircuit Breaker経由で変更する。
func (b *BreakerClient) Modify(ctx context.Context, key string, diff *AttributeDiff) error {
	return b.execute(OpModify, key, func() error {
		return b.inner.Modify(ctx, key, diff)
	})
}

// SetEnabled はCircuit Breaker経由で有効フラグを設定する。
func (b *BreakerClient) SetEnabled(ctx context.Context, key string, enabled bool) error {
	return b.execute(OpSetEnabled, key, func() error {
		return b.inner.SetEnabled(ctx, key, enabled)
	})
}

// Delete はCircuit Breaker経由で削除する。
func (b *BreakerClient) Delete(ctx context.Context, key string) error {
	return b.execute(OpDelete, key, func() error {
		return b.inner.Delete(ctx, key)
	})
}

func (b *BreakerClient) execute(op, key string, fn func() error) error {
	result, err := b.cb.Execute(func() (interface{}, error) {
		err := fn()
		// CB失敗判定対象: Unavailable, Timeout
		if apperr.IsDirectoryKind(err, apperr.DirectoryUnavailable) ||
			apperr.IsDirectoryKind(err, apperr.DirectoryTimeout) {
			return nil, err
		}
		// CB対象外エラーは結果として返してCBカウントに含めない
		return err, nil
	})
	if err != nil {
		// Circuit BreakerがOpen状態
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return apperr.NewDirectoryError(apperr.DirectoryUnavailable, op, key, err)
		}
		return err
	}
	if resErr, ok := result.(error); ok {
		return resErr
	}
	return nil
}
