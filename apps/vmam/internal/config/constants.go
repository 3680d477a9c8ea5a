package config

import "time"

// Valkey接続設定
const (
	ValkeyConnectTimeout = 3 * time.Second
	ValkeyCommandTimeout = 2 * time.Second
	ValkeyPoolSize       = 10
)

// LDAP接続設定
const (
	LDAPPort         = 389
	LDAPSPort        = 636
	LDAPDialTimeout  = 5 * time.Second
	LDAPOpTimeout    = 10 * time.Second
	LDAPProbeTimeout = 3 * time.Second
)

// Circuit Breaker設定（ディレクトリ）
const (
	CBName             = "directory"
	CBMaxRequests      = 1
	CBInterval         = 30 * time.Second
	CBTimeout          = 60 * time.Second
	CBFailureThreshold = 5
)

// バッチ照合設定
const (
	DefaultSyncInterval = time.Minute
	MaxWorkers          = 64
)

// 端末レジストリ・検出
const (
	DeviceTTL               = 7 * 24 * time.Hour
	DiscoveryRequestTimeout = 10 * time.Second
)

// RADIUS Accounting
const (
	AcctHandlerTimeout = 3 * time.Second
)

// シャットダウン設定
const (
	ShutdownTimeout = 5 * time.Second
)
