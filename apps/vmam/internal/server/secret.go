package server

import (
	"context"
	"log/slog"
	"net"

	"github.com/oyaguma3/vmam/apps/vmam/internal/store"
	"github.com/oyaguma3/vmam/pkg/logging"
)

// DynamicSecretSource はNAS毎のShared Secretを解決する。
// Valkeyに登録が無いNASや、Valkeyが使えない場合はRADIUS_SECRETを使う。
// layeh.com/radius.SecretSourceインターフェースの実装。
type DynamicSecretSource struct {
	clients  store.ClientStore // nil可
	fallback []byte
}

// NewSecretSource は新しいDynamicSecretSourceを生成する。
func NewSecretSource(clients store.ClientStore, fallback string) *DynamicSecretSource {
	s := &DynamicSecretSource{clients: clients}
	if fallback != "" {
		s.fallback = []byte(fallback)
	}
	return s
}

// RADIUSSecret はリモートアドレスに対応するShared Secretを返す。
// 解決できない場合はnilを返し、パケットは破棄される。
func (s *DynamicSecretSource) RADIUSSecret(ctx context.Context, remoteAddr net.Addr) ([]byte, error) {
	ip := extractIP(remoteAddr)
	if ip == "" || s.clients == nil {
		return s.fallback, nil
	}

	secret, err := s.clients.GetClientSecret(ctx, ip)
	switch {
	case err != nil:
		slog.Warn("NAS Secret検索エラー",
			logging.WithEventID("RADIUS_SECRET_ERR"),
			logging.WithSrcIP(ip),
			logging.WithError(err),
		)
	case secret != "":
		return []byte(secret), nil
	}

	if s.fallback == nil {
		slog.Warn("RADIUS Secret不明",
			logging.WithEventID("RADIUS_NO_SECRET"),
			logging.WithSrcIP(ip),
		)
	}
	return s.fallback, nil
}

// extractIP はnet.AddrからIPアドレス文字列を抽出する
func extractIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if udpAddr, ok := addr.(*net.UDPAddr); ok {
		return udpAddr.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	return host
}
