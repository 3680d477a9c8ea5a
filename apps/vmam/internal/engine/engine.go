package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/apps/vmam/internal/directory"
	"github.com/oyaguma3/vmam/apps/vmam/internal/mac"
	"github.com/oyaguma3/vmam/apps/vmam/internal/policy"
	"github.com/oyaguma3/vmam/pkg/apperr"
	"github.com/oyaguma3/vmam/pkg/logging"
)

// Options は判定に使う読み取り専用の設定。全ワーカーで共有する。
type Options struct {
	Table        *policy.Table
	Exclusion    *policy.ExclusionFilter
	SoftDeletion policy.SoftDeletion
	MacStyle     mac.Style
	VerifyAttrib []string
	WriteAttrib  []string
	OtherGroups  []string
	StrictRemove bool // 管理外グループに所属するIDの削除にforceを要求する
}

// OptionsFromFile は検証済み設定ファイルからOptionsを生成する。
func OptionsFromFile(f *config.File, cfg *config.Config) (Options, error) {
	table, err := f.PolicyTable()
	if err != nil {
		return Options{}, err
	}
	filter, err := f.ExclusionFilter()
	if err != nil {
		return Options{}, err
	}
	strict := true
	if cfg != nil {
		strict = cfg.StrictRemove
	}
	return Options{
		Table:        table,
		Exclusion:    filter,
		SoftDeletion: f.SoftDeletion(),
		MacStyle:     f.MacStyle(),
		VerifyAttrib: f.LDAP.VerifyAttrib,
		WriteAttrib:  f.LDAP.WriteAttrib,
		OtherGroups:  f.LDAP.OtherGroup,
		StrictRemove: strict,
	}, nil
}

// Engine は照合エンジン。手動操作とバッチの両方が同じ判定表を使う。
type Engine struct {
	dir    directory.Client
	opts   Options
	locker Locker
	fields *logging.CommonFields
}

// New は新しいEngineを生成する。lockerはnil可。
func New(dir directory.Client, opts Options, locker Locker, fields *logging.CommonFields) *Engine {
	if fields == nil {
		fields = logging.NewCommonFields(nil)
	}
	return &Engine{
		dir:    dir,
		opts:   opts,
		locker: locker,
		fields: fields,
	}
}

// Key はディレクトリ上のキー（mac_formatで整形したMACアドレス）を返す。
func (e *Engine) Key(req *Request) string {
	return req.MAC.Format(e.opts.MacStyle)
}

// Reconcile は1件の照合を行う。
// 除外 → ポリシー → ロック → 検索 → 判定 → 適用の順に処理し、
// Conflictは再検索・再判定のうえ1回だけ再適用する。
// 失敗時はOutcome.Errにも同じエラーを設定して返す。
func (e *Engine) Reconcile(ctx context.Context, req *Request) (*Outcome, error) {
	start := time.Now()
	key := e.Key(req)
	out := &Outcome{
		MAC:    req.MAC,
		Key:    key,
		VlanID: req.VlanID,
		Action: req.Action,
		Kind:   KindNoOp,
	}
	logAttrs := func(eventID string, extra ...any) []any {
		return append(e.fields.ReconcileLogFields(req.TraceID, eventID, key, req.VlanID), extra...)
	}

	// 1. 除外判定（ディレクトリアクセス前）
	if e.opts.Exclusion.Excludes(req.MAC, key) {
		out.Reason = ReasonExcluded
		out.Latency = time.Since(start)
		slog.Debug("除外対象のためスキップ", logAttrs("RECONCILE_EXCLUDED")...)
		return out, nil
	}

	// 2. ポリシー確認
	if _, err := e.resolveGroup(req); err != nil {
		return e.fail(out, start, err, logAttrs)
	}

	// 3. MAC単位ロック
	if e.locker != nil {
		token, ok, err := e.locker.TryLock(ctx, key)
		switch {
		case err != nil:
			// ロック基盤障害時は排他なしで継続
			slog.Warn("ロック取得失敗、排他なしで継続", logAttrs("RECONCILE_LOCK_ERR", logging.WithError(err))...)
		case !ok:
			out.Reason = ReasonInProgress
			out.Latency = time.Since(start)
			slog.Info("他プロセスで照合中のためスキップ", logAttrs("RECONCILE_IN_PROGRESS")...)
			return out, nil
		default:
			defer func() {
				if err := e.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					slog.Warn("ロック解放失敗", logAttrs("RECONCILE_UNLOCK_ERR", logging.WithError(err))...)
				}
			}()
		}
	}

	// 4. 検索 → 判定 → 適用
	for attempt := 0; ; attempt++ {
		current, err := e.dir.FindByMAC(ctx, key)
		if err != nil {
			return e.fail(out, start, err, logAttrs)
		}
		d, err := e.Decide(req, current)
		if err != nil {
			return e.fail(out, start, err, logAttrs)
		}
		out.Kind, out.Reason, out.Warning = d.Kind, d.Reason, d.Warning

		err = e.apply(ctx, d)
		if err == nil {
			out.Latency = time.Since(start)
			e.logDecision(out, logAttrs)
			return out, nil
		}
		if attempt == 0 && apperr.IsDirectoryKind(err, apperr.DirectoryConflict) {
			out.Retried = true
			slog.Info("ディレクトリ競合、再判定して再試行",
				logAttrs("RECONCILE_RETRY", logging.WithError(err))...)
			continue
		}
		return e.fail(out, start, err, logAttrs)
	}
}

// apply は判定を1回のディレクトリ操作として適用する。
func (e *Engine) apply(ctx context.Context, d *Decision) error {
	switch d.Kind {
	case KindCreate:
		return e.dir.Create(ctx, d.Identity)
	case KindUpdateVlan:
		return e.dir.Modify(ctx, d.Key, d.Diff)
	case KindDisable:
		return e.dir.SetEnabled(ctx, d.Key, false)
	case KindDelete:
		return e.dir.Delete(ctx, d.Key)
	}
	return nil
}

func (e *Engine) fail(out *Outcome, start time.Time, err error, logAttrs func(string, ...any) []any) (*Outcome, error) {
	out.Err = err
	out.Latency = time.Since(start)

	var conflict *apperr.ConflictError
	var policyErr *apperr.PolicyError
	switch {
	case errors.As(err, &conflict):
		out.Reason = string(conflict.Reason)
		slog.Warn("既存状態と競合するため変更なし",
			logAttrs("RECONCILE_CONFLICT", logging.WithError(err))...)
	case errors.As(err, &policyErr):
		out.Reason = "unknown-vlan"
		slog.Warn("VLANに対応するグループが未定義",
			logAttrs("RECONCILE_POLICY_ERR", logging.WithError(err))...)
	default:
		if de, ok := apperr.AsDirectoryError(err); ok {
			out.Reason = string(de.Kind)
		}
		slog.Error("照合失敗",
			logAttrs("RECONCILE_ERR", logging.WithError(err), logging.WithLatency(out.Latency.Milliseconds()))...)
	}
	return out, err
}

func (e *Engine) logDecision(out *Outcome, logAttrs func(string, ...any) []any) {
	attrs := logAttrs("RECONCILE_DONE",
		append(logging.WithDecision(string(out.Kind), out.Reason),
			logging.WithLatency(out.Latency.Milliseconds()))...)
	switch {
	case out.Warning != "":
		slog.Warn(out.Warning, attrs...)
	case out.Kind.IsMutation():
		slog.Info("照合完了", attrs...)
	default:
		slog.Debug("照合完了（変更なし）", attrs...)
	}
}
