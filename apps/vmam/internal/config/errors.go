package config

import (
	"errors"
	"io/fs"
)

// isNotExist はファイル不存在エラーかを判定する
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
