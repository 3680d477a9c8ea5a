// Package policy はVLAN/グループ対応表と除外・論理削除ポリシーを提供する。
package policy

import (
	"fmt"
	"strings"
)

// VLAN IDの範囲（IEEE 802.1Q）
const (
	MinVlanID = 1
	MaxVlanID = 4094
)

// MatchRule は検証属性の比較方法。
type MatchRule int

const (
	// MatchExact は大文字小文字を区別する完全一致
	MatchExact MatchRule = iota
	// MatchLike は大文字小文字を区別しない部分一致
	MatchLike
)

// String は設定値表記を返す。
func (r MatchRule) String() string {
	if r == MatchLike {
		return "like"
	}
	return "exact"
}

// ParseMatchRule は設定値（LDAP.match）からMatchRuleを得る。
func ParseMatchRule(s string) (MatchRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact", "exactly":
		return MatchExact, nil
	case "like":
		return MatchLike, nil
	}
	return MatchExact, fmt.Errorf("unknown match rule %q", s)
}

// VlanBinding はVLAN IDとグループの対応1件。
type VlanBinding struct {
	VlanID int
	Group  string
	Rule   MatchRule
}
