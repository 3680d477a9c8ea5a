package directory

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/oyaguma3/vmam/pkg/apperr"
)

// RateLimitedClient は変更系操作の送出レートを制限するClient。検索は制限しない。
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient はperSecond件/秒に制限したClientを返す。perSecondが0以下の場合はinnerをそのまま返す。
func NewRateLimitedClient(inner Client, perSecond float64, burst int) Client {
	if perSecond <= 0 {
		return inner
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// FindByMAC は制限なしで検索する。
func (r *RateLimitedClient) FindByMAC(ctx context.Context, key string) (*Identity, error) {
	return r.inner.FindByMAC(ctx, key)
}

// Create は送出枠を待ってから作成する。
func (r *RateLimitedClient) Create(ctx context.Context, identity *Identity) error {
	if err := r.wait(ctx, OpCreate, identity.Key); err != nil {
		return err
	}
	return r.inner.Create(ctx, identity)
}

// Modify は送出枠を待ってから変更する。
func (r *RateLimitedClient) Modify(ctx context.Context, key string, diff *AttributeDiff) error {
	if err := r.wait(ctx, OpModify, key); err != nil {
		return err
	}
	return r.inner.Modify(ctx, key, diff)
}

// SetEnabled は送出枠を待ってから有効フラグを設定する。
func (r *RateLimitedClient) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if err := r.wait(ctx, OpSetEnabled, key); err != nil {
		return err
	}
	return r.inner.SetEnabled(ctx, key, enabled)
}

// Delete は送出枠を待ってから削除する。
func (r *RateLimitedClient) Delete(ctx context.Context, key string) error {
	if err := r.wait(ctx, OpDelete, key); err != nil {
		return err
	}
	return r.inner.Delete(ctx, key)
}

// wait はコンテキスト期限内に枠が得られない場合Timeoutを返す。
func (r *RateLimitedClient) wait(ctx context.Context, op, key string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return apperr.NewDirectoryError(apperr.DirectoryTimeout, op, key, err)
	}
	return nil
}
