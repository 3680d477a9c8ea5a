// Package engine はMACアドレス1件ごとの照合（判定と適用）を行う。
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/oyaguma3/vmam/apps/vmam/internal/directory"
	"github.com/oyaguma3/vmam/apps/vmam/internal/mac"
)

// Action は要求された操作。
type Action string

// Action値
const (
	ActionAdd     Action = "add"
	ActionRemove  Action = "remove"
	ActionDisable Action = "disable"
)

// ParseAction は文字列をActionに変換する。
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionAdd, ActionRemove, ActionDisable:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// AnyVlan はremove/disableでVLANを限定しないことを示す。
const AnyVlan = 0

// Kind は判定結果の種別。
type Kind string

// Kind値
const (
	KindCreate     Kind = "create"
	KindUpdateVlan Kind = "update_vlan"
	KindDisable    Kind = "disable"
	KindDelete     Kind = "delete"
	KindNoOp       Kind = "noop"
)

// IsMutation はディレクトリを変更する判定かを返す。
func (k Kind) IsMutation() bool {
	return k != KindNoOp && k != ""
}

// 判定理由
const (
	ReasonExcluded          = "excluded"
	ReasonAlreadySatisfied  = "already-satisfied"
	ReasonAlreadyDisabled   = "already-disabled"
	ReasonNotFound          = "not-found"
	ReasonSoftDeletionOff   = "soft-deletion-disabled"
	ReasonInProgress        = "in-progress"
	ReasonNewIdentity       = "new-identity"
	ReasonVlanChanged       = "vlan-changed"
	ReasonRepair            = "repair"
	ReasonRemoveRequested   = "remove-requested"
	ReasonDisableRequested  = "disable-requested"
	ReasonReenableRequested = "reenable-requested"
)

// Request は1件の照合要求。
type Request struct {
	MAC     mac.Address
	VlanID  int
	Action  Action
	Force   bool
	TraceID string
}

// Decision は判定結果。1件の照合の間だけ存在する。
type Decision struct {
	Kind     Kind
	MAC      mac.Address
	Key      string                   // ディレクトリ上のキー
	VlanID   int                      // 対象VLAN
	Group    string                   // 対象グループ
	Identity *directory.Identity      // Createでは作成内容、それ以外は現在のスナップショット
	Diff     *directory.AttributeDiff // UpdateVlanの差分
	Reason   string
	Warning  string
}

// Outcome は照合1件の結果。バッチレポートに集計される。
type Outcome struct {
	MAC     mac.Address
	Key     string
	VlanID  int
	Action  Action
	Kind    Kind
	Reason  string
	Warning string
	Retried bool
	Err     error
	Latency time.Duration
}

// Failed は失敗したかを返す。
func (o *Outcome) Failed() bool {
	return o.Err != nil
}
