package discovery

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable は取得元に接続できない場合のエラー
	ErrSourceUnavailable = errors.New("discovery source unavailable")

	// ErrInvalidResponse は取得元の応答を解釈できない場合のエラー
	ErrInvalidResponse = errors.New("invalid discovery response")
)

// UpstreamError は取得元がエラーステータスを返した場合のエラー
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("discovery upstream error: status=%d, body=%s", e.StatusCode, e.Body)
}
