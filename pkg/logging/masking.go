// Package logging はログ関連のユーティリティを提供する。
package logging

// MaskMAC はMACアドレス（正規形12桁）をマスキングする。
// OUI（先頭6桁）+ マスク + 末尾2桁
// 例: 000018ff12dd → 000018****dd
// enabled=false の場合はマスキングせずにそのまま返す。
func MaskMAC(mac string, enabled bool) string {
	if !enabled {
		return mac
	}
	return MaskPartial(mac, 6, 2, '*')
}

// MaskSecret はパスワード等を完全にマスキングする。
// 空文字列は空のまま返す（未設定であることは隠さない）。
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// MaskPartial は文字列の一部をマスキングする。
// keepPrefix: 先頭から保持する文字数
// keepSuffix: 末尾から保持する文字数
// maskChar: マスキングに使用する文字
func MaskPartial(s string, keepPrefix, keepSuffix int, maskChar rune) string {
	runes := []rune(s)
	length := len(runes)

	// 文字列が短すぎる場合はそのまま返す
	if length <= keepPrefix+keepSuffix {
		return s
	}

	result := make([]rune, length)
	copy(result, runes[:keepPrefix])
	for i := keepPrefix; i < length-keepSuffix; i++ {
		result[i] = maskChar
	}
	copy(result[length-keepSuffix:], runes[length-keepSuffix:])

	return string(result)
}

// Masker はマスキング設定を保持する構造体。
type Masker struct {
	enabled bool
}

// NewMasker は新しいMaskerを生成する。
func NewMasker(enabled bool) *Masker {
	return &Masker{enabled: enabled}
}

// MAC はMACアドレスをマスキングする。
func (m *Masker) MAC(mac string) string {
	return MaskMAC(mac, m.enabled)
}

// IsEnabled はマスキングが有効かどうかを返す。
func (m *Masker) IsEnabled() bool {
	return m.enabled
}
