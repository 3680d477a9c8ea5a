package directory

import (
	"slices"
	"strings"
)

// Identity はMACアドレスをキーとするディレクトリ上のユーザーオブジェクト。
// 照合1回分のスナップショットであり、書き換えても反映されない。
type Identity struct {
	Key        string              // sAMAccountName（mac_formatで整形したMACアドレス）
	DN         string              // 識別名
	Enabled    bool                // 有効フラグ
	Groups     []string            // 所属グループのCN
	Attributes map[string][]string // 属性（キーは小文字）
	ComputerDN string              // add_group_typeにcomputerを含む場合の対応コンピューター
}

// Clone はディープコピーを返す。
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Groups = slices.Clone(i.Groups)
	c.Attributes = make(map[string][]string, len(i.Attributes))
	for k, v := range i.Attributes {
		c.Attributes[k] = slices.Clone(v)
	}
	return &c
}

// Attr は属性値を返す。属性名は大文字小文字を区別しない。
func (i *Identity) Attr(name string) []string {
	if i == nil {
		return nil
	}
	return i.Attributes[strings.ToLower(name)]
}

// InGroup は指定グループに所属しているかを返す。
func (i *Identity) InGroup(group string) bool {
	if i == nil {
		return false
	}
	for _, g := range i.Groups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// SetAttr は属性を設定する。
func (i *Identity) SetAttr(name string, values ...string) {
	if i.Attributes == nil {
		i.Attributes = make(map[string][]string)
	}
	i.Attributes[strings.ToLower(name)] = values
}

// AttributeDiff はIDへの変更差分。1回のModifyで適用される。
type AttributeDiff struct {
	Replace      map[string][]string
	AddGroups    []string
	RemoveGroups []string
	Enable       *bool
}

// IsEmpty は変更がないかを返す。
func (d *AttributeDiff) IsEmpty() bool {
	return d == nil ||
		(len(d.Replace) == 0 && len(d.AddGroups) == 0 && len(d.RemoveGroups) == 0 && d.Enable == nil)
}

// applyTo は差分をIDに適用する。MemoryClientが使う。
func (d *AttributeDiff) applyTo(i *Identity) {
	for k, v := range d.Replace {
		i.SetAttr(k, slices.Clone(v)...)
	}
	for _, g := range d.RemoveGroups {
		i.Groups = slices.DeleteFunc(i.Groups, func(cur string) bool {
			return strings.EqualFold(cur, g)
		})
	}
	for _, g := range d.AddGroups {
		if !i.InGroup(g) {
			i.Groups = append(i.Groups, g)
		}
	}
	if d.Enable != nil {
		i.Enabled = *d.Enable
	}
}
