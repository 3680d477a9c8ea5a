package store

import (
	"errors"
	"fmt"

	"github.com/oyaguma3/vmam/pkg/apperr"
	"github.com/oyaguma3/vmam/pkg/valkey"
)

var (
	// ErrValkeyUnavailable はValkeyへの接続が利用不可能な場合のエラー
	ErrValkeyUnavailable = errors.New("valkey unavailable")

	// ErrKeyNotFound は指定されたキーが存在しない場合のエラー
	ErrKeyNotFound = errors.New("key not found")
)

// unavailable はValkeyエラーをErrValkeyUnavailableでラップする。
// 接続系以外のエラーは*apperr.ValkeyErrorとしてコマンド情報を付与する。
func unavailable(op, key string, err error) error {
	if valkey.IsConnectionError(err) {
		return fmt.Errorf("%w: %v", ErrValkeyUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrValkeyUnavailable, apperr.NewValkeyError(op, key, err))
}
