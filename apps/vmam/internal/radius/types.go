// Package radius はRADIUS Accounting（RFC 2866）から端末情報を取り出す。
package radius

// AccountingAttributes はAccounting-Requestから抽出した端末検出用の属性
type AccountingAttributes struct {
	AcctStatusType   uint32   // Acct-Status-Type
	AcctSessionID    string   // Acct-Session-Id（オプション）
	CallingStationID string   // Calling-Station-Id（端末のMACアドレス）
	UserName         string   // User-Name（MABではMACアドレス）
	NasIPAddress     string   // NAS-IP-Address
	TunnelGroupID    string   // Tunnel-Private-Group-Id（タグ除去済み）
	VlanID           int      // TunnelGroupIDが数値の場合のVLAN ID
	ProxyStates      [][]byte // Proxy-State属性（複数可）
}

// Acct-Status-Type値（RFC 2866）
const (
	AcctStatusTypeStart         uint32 = 1
	AcctStatusTypeStop          uint32 = 2
	AcctStatusTypeInterim       uint32 = 3
	AcctStatusTypeAccountingOn  uint32 = 7
	AcctStatusTypeAccountingOff uint32 = 8
)

// IsSession は端末単位のセッション通知（Start/Stop/Interim）かを返す。
func (a *AccountingAttributes) IsSession() bool {
	switch a.AcctStatusType {
	case AcctStatusTypeStart, AcctStatusTypeStop, AcctStatusTypeInterim:
		return true
	}
	return false
}
