package radius

import (
	"encoding/binary"
	"errors"
	"net"
	"strconv"
	"strings"

	"layeh.com/radius"
)

// RADIUS属性タイプ定数（RFC 2865/2866/2868）
const (
	AttrTypeUserName         = 1
	AttrTypeNASIPAddress     = 4
	AttrTypeCallingStationID = 31
	AttrTypeProxyState       = 33
	AttrTypeAcctStatusType   = 40
	AttrTypeAcctSessionID    = 44
	AttrTypeTunnelGroupID    = 81
)

// 属性抽出エラー
var (
	ErrMissingStatusType = errors.New("missing Acct-Status-Type")
	ErrMissingStation    = errors.New("missing Calling-Station-Id and User-Name")
)

// ExtractAccountingAttributes はAccounting-Requestから端末検出に必要な属性を抽出する。
// Start/Stop/InterimではCalling-Station-IdまたはUser-Nameが必須。
func ExtractAccountingAttributes(packet *radius.Packet) (*AccountingAttributes, error) {
	attrs := &AccountingAttributes{}

	// Acct-Status-Type（必須）
	statusType := packet.Get(radius.Type(AttrTypeAcctStatusType))
	if len(statusType) < 4 {
		return nil, ErrMissingStatusType
	}
	attrs.AcctStatusType = binary.BigEndian.Uint32(statusType)

	attrs.AcctSessionID = string(packet.Get(radius.Type(AttrTypeAcctSessionID)))
	attrs.CallingStationID = strings.TrimSpace(string(packet.Get(radius.Type(AttrTypeCallingStationID))))
	attrs.UserName = strings.TrimSpace(string(packet.Get(radius.Type(AttrTypeUserName))))

	if nasIP := packet.Get(radius.Type(AttrTypeNASIPAddress)); len(nasIP) == 4 {
		attrs.NasIPAddress = net.IP(nasIP).String()
	}

	// Tunnel-Private-Group-Id（RFC 2868: 先頭1バイトが0x00-0x1Fならタグ）
	if tgid := packet.Get(radius.Type(AttrTypeTunnelGroupID)); len(tgid) > 0 {
		if tgid[0] <= 0x1F {
			tgid = tgid[1:]
		}
		attrs.TunnelGroupID = strings.TrimSpace(string(tgid))
		if vlan, err := strconv.Atoi(attrs.TunnelGroupID); err == nil && vlan > 0 {
			attrs.VlanID = vlan
		}
	}

	attrs.ProxyStates = proxyStates(packet)

	if attrs.IsSession() && attrs.CallingStationID == "" && attrs.UserName == "" {
		return nil, ErrMissingStation
	}
	return attrs, nil
}

// proxyStates はProxy-State属性を出現順に抽出する。
func proxyStates(packet *radius.Packet) [][]byte {
	var states [][]byte
	for _, attr := range packet.Attributes {
		if attr.Type == radius.Type(AttrTypeProxyState) {
			states = append(states, attr.Attribute)
		}
	}
	return states
}
