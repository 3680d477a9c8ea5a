package engine

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/oyaguma3/vmam/apps/vmam/internal/directory"
	"github.com/oyaguma3/vmam/pkg/apperr"
)

// Decide は現在のIDスナップショットから判定を行う。ディレクトリへはアクセスしない。
// currentがnilの場合はIDが存在しないものとして扱う。
func (e *Engine) Decide(req *Request, current *directory.Identity) (*Decision, error) {
	key := e.Key(req)
	d := &Decision{
		Kind:     KindNoOp,
		MAC:      req.MAC,
		Key:      key,
		VlanID:   req.VlanID,
		Identity: current,
	}

	// 1. 除外判定
	name := key
	if current != nil {
		name = current.Key
	}
	if e.opts.Exclusion.Excludes(req.MAC, name) || e.opts.Exclusion.Excludes(req.MAC, key) {
		d.Reason = ReasonExcluded
		return d, nil
	}

	// 2. 対象グループ解決
	group, err := e.resolveGroup(req)
	if err != nil {
		return nil, err
	}
	d.Group = group

	// 論理削除が無効なら存在有無に関わらず警告付きNoOp
	if req.Action == ActionDisable && !e.opts.SoftDeletion.AllowsDisable() {
		d.Reason = ReasonSoftDeletionOff
		d.Warning = "disable requested but soft_deletion is disabled in configuration"
		return d, nil
	}

	// 3. ID未登録
	if current == nil {
		if req.Action == ActionAdd {
			d.Kind = KindCreate
			d.Identity = e.newIdentity(key, req.VlanID, group)
			d.Reason = ReasonNewIdentity
		} else {
			d.Reason = ReasonNotFound
		}
		return d, nil
	}

	// 4. ID登録済み
	switch req.Action {
	case ActionAdd:
		return e.decideAdd(req, d, current)
	case ActionRemove:
		return e.decideRemove(req, d, current)
	case ActionDisable:
		if !current.Enabled {
			d.Reason = ReasonAlreadyDisabled
			return d, nil
		}
		d.Kind = KindDisable
		d.Reason = ReasonDisableRequested
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
}

func (e *Engine) resolveGroup(req *Request) (string, error) {
	switch req.Action {
	case ActionAdd:
		if req.VlanID == AnyVlan {
			return "", ErrVlanRequired
		}
	case ActionRemove, ActionDisable:
		if req.VlanID == AnyVlan {
			return "", nil
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	return e.opts.Table.ResolveGroup(req.VlanID)
}

func (e *Engine) decideAdd(req *Request, d *Decision, current *directory.Identity) (*Decision, error) {
	// 管理グループ・VLAN属性による結び付きは完全一致で判定し、likeの部分一致より優先する
	bound := e.boundVlans(current)
	differs := slices.ContainsFunc(bound, func(v int) bool { return v != d.VlanID })

	if current.Enabled && !differs && e.satisfies(current, d.Key, d.VlanID, d.Group) {
		d.Reason = ReasonAlreadySatisfied
		return d, nil
	}

	if !current.Enabled && !req.Force {
		return nil, apperr.NewConflictError(apperr.ConflictIdentityDisabled, d.Key,
			"identity is disabled; use force to re-enable")
	}

	if differs && !req.Force {
		return nil, apperr.NewConflictError(apperr.ConflictExistingDifferentVlan, d.Key,
			fmt.Sprintf("identity is bound to vlan %v, requested %d", bound, d.VlanID))
	}

	d.Kind = KindUpdateVlan
	d.Diff = e.updateDiff(current, d.VlanID, d.Group)
	switch {
	case differs:
		d.Reason = ReasonVlanChanged
	case !current.Enabled:
		d.Reason = ReasonReenableRequested
	default:
		// 管理グループ・VLAN属性の欠落を補う
		d.Reason = ReasonRepair
	}
	return d, nil
}

func (e *Engine) decideRemove(req *Request, d *Decision, current *directory.Identity) (*Decision, error) {
	if e.opts.StrictRemove && !req.Force {
		if extra := e.unmanagedGroups(current, d.Group); len(extra) > 0 {
			return nil, apperr.NewConflictError(apperr.ConflictNotSolelyManaged, d.Key,
				fmt.Sprintf("identity is also member of %s", strings.Join(extra, ", ")))
		}
	}
	d.Kind = KindDelete
	d.Reason = ReasonRemoveRequested
	return d, nil
}

// satisfies はverify_attribの各属性が照合ルール上ポリシーを満たすかを返す。
func (e *Engine) satisfies(current *directory.Identity, key string, vlanID int, group string) bool {
	table := e.opts.Table
	vlan := strconv.Itoa(vlanID)

	for _, attr := range e.opts.VerifyAttrib {
		a := strings.ToLower(strings.TrimSpace(attr))
		var expected string
		var actual []string

		switch {
		case a == "":
			continue
		case a == "memberof":
			expected, actual = group, current.Groups
		case a == "cn" || a == "samaccountname" || a == "name":
			expected, actual = key, current.Attr(a)
			if len(actual) == 0 {
				actual = []string{current.Key}
			}
		case a == e.vlanAttr():
			expected, actual = vlan, current.Attr(a)
		case a == e.groupAttr():
			expected, actual = group, current.Attr(a)
		default:
			if len(current.Attr(a)) == 0 {
				return false
			}
			continue
		}

		if !slices.ContainsFunc(actual, func(v string) bool { return table.Matches(v, expected) }) {
			return false
		}
	}
	return true
}

// boundVlans はIDが現在結び付いているVLAN（管理グループ所属とVLAN属性）を返す。
func (e *Engine) boundVlans(current *directory.Identity) []int {
	var out []int
	add := func(v int) {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	for _, g := range current.Groups {
		if v, ok := e.opts.Table.VlanForGroup(g); ok {
			add(v)
		}
	}
	if attr := e.vlanAttr(); attr != "" {
		for _, s := range current.Attr(attr) {
			if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				add(v)
			}
		}
	}
	slices.Sort(out)
	return out
}

// unmanagedGroups は対象グループとother_group以外の所属グループを返す。
// groupが空（VLAN指定なし）の場合は管理グループすべてを対象とみなす。
func (e *Engine) unmanagedGroups(current *directory.Identity, group string) []string {
	var extra []string
	for _, g := range current.Groups {
		switch {
		case group != "" && strings.EqualFold(g, group):
		case group == "" && e.opts.Table.IsManagedGroup(g):
		case e.isOtherGroup(g):
		default:
			extra = append(extra, g)
		}
	}
	return extra
}

func (e *Engine) isOtherGroup(g string) bool {
	return slices.ContainsFunc(e.opts.OtherGroups, func(o string) bool {
		return strings.EqualFold(o, g)
	})
}

// newIdentity は作成するIDを組み立てる。
func (e *Engine) newIdentity(key string, vlanID int, group string) *directory.Identity {
	id := &directory.Identity{
		Key:     key,
		Enabled: true,
		Groups:  e.targetGroups(group),
	}
	id.SetAttr("cn", key)
	id.SetAttr("samaccountname", key)
	for name, values := range e.writeAttrs(vlanID, group) {
		id.SetAttr(name, values...)
	}
	return id
}

// updateDiff は既存IDを対象VLANへ付け替える差分を返す。
func (e *Engine) updateDiff(current *directory.Identity, vlanID int, group string) *directory.AttributeDiff {
	diff := &directory.AttributeDiff{Replace: e.writeAttrs(vlanID, group)}
	for _, g := range current.Groups {
		if e.opts.Table.IsManagedGroup(g) && !strings.EqualFold(g, group) {
			diff.RemoveGroups = append(diff.RemoveGroups, g)
		}
	}
	for _, g := range e.targetGroups(group) {
		if !current.InGroup(g) {
			diff.AddGroups = append(diff.AddGroups, g)
		}
	}
	if !current.Enabled {
		enable := true
		diff.Enable = &enable
	}
	return diff
}

func (e *Engine) targetGroups(group string) []string {
	groups := []string{group}
	for _, o := range e.opts.OtherGroups {
		if o = strings.TrimSpace(o); o != "" && !strings.EqualFold(o, group) {
			groups = append(groups, o)
		}
	}
	return groups
}

// writeAttrs はwrite_attribに書き込む値を返す。1番目にVLAN ID、2番目にグループ名。
func (e *Engine) writeAttrs(vlanID int, group string) map[string][]string {
	attrs := make(map[string][]string, 2)
	if a := e.vlanAttr(); a != "" {
		attrs[a] = []string{strconv.Itoa(vlanID)}
	}
	if a := e.groupAttr(); a != "" {
		attrs[a] = []string{group}
	}
	return attrs
}

func (e *Engine) vlanAttr() string {
	return e.writeAttrAt(0)
}

func (e *Engine) groupAttr() string {
	return e.writeAttrAt(1)
}

func (e *Engine) writeAttrAt(i int) string {
	if i >= len(e.opts.WriteAttrib) {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(e.opts.WriteAttrib[i]))
}
