package policy

// Retirement は非アクティブ端末に適用する処理。
type Retirement int

const (
	// RetireRemove はIDを削除する
	RetireRemove Retirement = iota
	// RetireDisable はIDを無効化して残す
	RetireDisable
)

// SoftDeletion はsoft_deletion設定に基づく削除方式の判定。
type SoftDeletion struct {
	enabled bool
}

// NewSoftDeletion はSoftDeletionを生成する。
func NewSoftDeletion(enabled bool) SoftDeletion {
	return SoftDeletion{enabled: enabled}
}

// AllowsDisable は無効化（論理削除）が許可されているかを返す。
func (s SoftDeletion) AllowsDisable() bool {
	return s.enabled
}

// RetireAction は非アクティブ端末に対する処理を返す。
func (s SoftDeletion) RetireAction() Retirement {
	if s.enabled {
		return RetireDisable
	}
	return RetireRemove
}
