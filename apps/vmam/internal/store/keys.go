package store

// Valkeyキープレフィックス
const (
	KeyPrefixDevice = "vmam:device:"     // 端末情報（Hash）
	KeyDeviceIndex  = "vmam:devices"     // 端末一覧（Sorted Set、スコアは最終検出時刻）
	KeyPrefixLock   = "vmam:lock:"       // MAC単位の照合ロック
	KeyLastReport   = "vmam:report:last" // 直近のバッチレポート（JSON）
	KeyPrefixClient = "client:"          // RADIUSクライアント設定
)
