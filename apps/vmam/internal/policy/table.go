package policy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/oyaguma3/vmam/pkg/apperr"
)

// Table はVLAN ID・グループ・照合ルールの対応表。
// 生成後は読み取り専用で、複数ワーカーから共有してよい。
type Table struct {
	groups     map[int]string
	byGroup    map[string]int
	userMatch  map[string]int
	matchNames []string
	rule       MatchRule
}

// Load はvlan_group_id・user_match_id・照合ルールから対応表を生成する。
// user_match_idの値がvlan_group_idに存在しない場合はMissingVlanGroupMappingを返す。
func Load(vlanGroup map[int]string, userMatch map[string]int, rule MatchRule) (*Table, error) {
	t := &Table{
		groups:    make(map[int]string, len(vlanGroup)),
		byGroup:   make(map[string]int, len(vlanGroup)),
		userMatch: make(map[string]int, len(userMatch)),
		rule:      rule,
	}

	for vlan, group := range vlanGroup {
		field := "VMAM.vlan_group_id." + strconv.Itoa(vlan)
		if vlan < MinVlanID || vlan > MaxVlanID {
			return nil, apperr.NewConfigError(apperr.ConfigInvalidValue, field,
				fmt.Sprintf("vlan id must be between %d and %d", MinVlanID, MaxVlanID))
		}
		group = strings.TrimSpace(group)
		if group == "" {
			return nil, apperr.NewConfigError(apperr.ConfigInvalidValue, field, "group name must not be empty")
		}
		t.groups[vlan] = group
		t.byGroup[strings.ToLower(group)] = vlan
	}

	for name, vlan := range userMatch {
		if _, ok := t.groups[vlan]; !ok {
			return nil, apperr.NewConfigError(apperr.ConfigMissingVlanGroupMapping,
				"VMAM.user_match_id."+name,
				fmt.Sprintf("vlan id %d is not a key of vlan_group_id", vlan))
		}
		t.userMatch[name] = vlan
		t.matchNames = append(t.matchNames, name)
	}
	sort.Strings(t.matchNames)

	return t, nil
}

// ResolveGroup はVLAN IDに対応するグループ名を返す。
func (t *Table) ResolveGroup(vlanID int) (string, error) {
	group, ok := t.groups[vlanID]
	if !ok {
		return "", apperr.NewPolicyError(vlanID)
	}
	return group, nil
}

// VlanForGroup はグループ名（大文字小文字無視）に対応するVLAN IDを返す。
func (t *Table) VlanForGroup(group string) (int, bool) {
	vlan, ok := t.byGroup[strings.ToLower(group)]
	return vlan, ok
}

// IsManagedGroup はグループがいずれかのVLANに対応付けられているかを返す。
func (t *Table) IsManagedGroup(group string) bool {
	_, ok := t.VlanForGroup(group)
	return ok
}

// MatchRule は検証属性の比較方法を返す。
func (t *Table) MatchRule() MatchRule {
	return t.rule
}

// Matches はactualがexpectedを満たすかを照合ルールに従って判定する。
func (t *Table) Matches(actual, expected string) bool {
	if t.rule == MatchLike {
		return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	}
	return actual == expected
}

// ResolveVlan は検出属性値をuser_match_idで照合し、VLAN IDを返す。
// 名前の辞書順に評価し、最初に一致したものを採用する。
func (t *Table) ResolveVlan(values []string) (int, bool) {
	for _, name := range t.matchNames {
		for _, v := range values {
			if t.Matches(v, name) {
				return t.userMatch[name], true
			}
		}
	}
	return 0, false
}

// Bindings はVLAN ID昇順の対応一覧を返す。
func (t *Table) Bindings() []VlanBinding {
	out := make([]VlanBinding, 0, len(t.groups))
	for vlan, group := range t.groups {
		out = append(out, VlanBinding{VlanID: vlan, Group: group, Rule: t.rule})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VlanID < out[j].VlanID })
	return out
}
