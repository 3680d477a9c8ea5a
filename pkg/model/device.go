// Package model はvmam全体で共有するデータモデルを提供する。
package model

import "time"

// DeviceSource は端末情報の取得元を表す定数。
type DeviceSource string

const (
	// SourceAccounting はRADIUS Accountingから登録された端末
	SourceAccounting DeviceSource = "accounting"
	// SourceHTTP はHTTP（DHCP/IPAMエクスポート等）から取得した端末
	SourceHTTP DeviceSource = "http"
	// SourceManual は手動登録された端末
	SourceManual DeviceSource = "manual"
)

// Device は検出済みネットワーク端末を表す。
// Valkeyキー: vmam:device:{MAC}
type Device struct {
	MAC        string       `json:"mac" redis:"mac"`                       // MACアドレス（正規形）
	VlanID     int          `json:"vlan_id,omitempty" redis:"vlan_id"`     // VLANヒント（0は未指定）
	Active     bool         `json:"active" redis:"active"`                 // 接続中かどうか
	LastSeen   int64        `json:"last_seen" redis:"last_seen"`           // 最終検出時刻（Unix秒）
	Source     DeviceSource `json:"source" redis:"source"`                 // 取得元
	NasIP      string       `json:"nas_ip,omitempty" redis:"nas_ip"`       // 検出したNASのIP
	UserName   string       `json:"user_name,omitempty" redis:"user_name"` // RADIUS User-Name
	Attributes []string     `json:"attributes,omitempty" redis:"-"`        // user_match_id照合用の属性値
}

// NewDevice は新しいDeviceを生成する。
func NewDevice(mac string, vlanID int, source DeviceSource, seenAt time.Time) *Device {
	return &Device{
		MAC:      mac,
		VlanID:   vlanID,
		Active:   true,
		LastSeen: seenAt.Unix(),
		Source:   source,
	}
}

// LastSeenTime は最終検出時刻をtime.Timeで返す。
func (d *Device) LastSeenTime() time.Time {
	return time.Unix(d.LastSeen, 0)
}

// IsStale は最終検出からstaleAfter以上経過しているかを返す。
// staleAfterが0以下の場合は常にfalse。
func (d *Device) IsStale(now time.Time, staleAfter time.Duration) bool {
	if staleAfter <= 0 {
		return false
	}
	return now.Sub(d.LastSeenTime()) >= staleAfter
}
