package valkey

import (
	"context"
	"errors"
	"net"

	"github.com/redis/go-redis/v9"
)

// Dial はoptsでクライアントを生成し、PINGが通ることを確認して返す。
// 確認に失敗した場合は接続を閉じてエラーを返す。
func Dial(ctx context.Context, opts *Options) (*redis.Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	client := redis.NewClient(opts.redisOptions())
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// IsConnectionError はリトライや縮退運転の対象となる接続系のエラーかを判定する。
// WRONGTYPEなどのコマンドエラーはfalse。
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
