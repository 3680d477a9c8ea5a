// Package scheduler は検出済み端末の定期バッチ照合を行う。
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oyaguma3/vmam/apps/vmam/internal/directory"
	"github.com/oyaguma3/vmam/apps/vmam/internal/discovery"
	"github.com/oyaguma3/vmam/apps/vmam/internal/engine"
	"github.com/oyaguma3/vmam/apps/vmam/internal/mac"
	"github.com/oyaguma3/vmam/apps/vmam/internal/policy"
	"github.com/oyaguma3/vmam/pkg/logging"
	"github.com/oyaguma3/vmam/pkg/model"
)

// Scheduler はバッチ照合のドライバー。
type Scheduler struct {
	rec     engine.Reconciler
	source  discovery.Source
	prober  directory.Prober
	reports ReportSaver // nil可
	pruner  Pruner      // nil可
	opts    Options
	now     func() time.Time
}

// New は新しいSchedulerを生成する。reports、prunerはnil可。
func New(rec engine.Reconciler, source discovery.Source, prober directory.Prober, reports ReportSaver, pruner Pruner, opts Options) *Scheduler {
	opts.normalize()
	return &Scheduler{
		rec:     rec,
		source:  source,
		prober:  prober,
		reports: reports,
		pruner:  pruner,
		opts:    opts,
		now:     time.Now,
	}
}

// Run は直ちに1回目のバッチを実行し、以降Interval毎に繰り返す。
// ctxがキャンセルされると新規バッチを開始せずに戻る。
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("スケジューラー開始",
		logging.WithEventID("SCHED_START"),
		"interval", s.opts.Interval.String(),
		"workers", s.opts.Workers,
	)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		// バッチ単位の失敗はログ済み。次の周期で再実行する
		_, _ = s.RunOnce(ctx)
		s.prune(ctx)

		select {
		case <-ctx.Done():
			slog.Info("スケジューラー停止", logging.WithEventID("SCHED_STOP"))
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce は1回分のバッチ照合を行い、レポートを返す。
// 疎通確認に失敗した場合はディレクトリへの変更を一切行わずに中断する。
func (s *Scheduler) RunOnce(ctx context.Context) (*model.BatchReport, error) {
	report := &model.BatchReport{
		BatchID:   uuid.NewString(),
		StartedAt: s.now(),
	}
	batchAttr := logging.WithBatchID(report.BatchID)

	// 1. 疎通確認
	if err := s.prober.Ping(ctx); err != nil {
		return s.abort(ctx, report, fmt.Errorf("%w: %v", ErrDirectoryUnreachable, err))
	}

	// 2. 端末一覧の取得
	devices, err := s.source.Devices(ctx, s.opts.MaxDevices)
	if err != nil {
		return s.abort(ctx, report, fmt.Errorf("%w: %v", ErrDiscoveryFailed, err))
	}
	if s.opts.MaxDevices > 0 && len(devices) > s.opts.MaxDevices {
		devices = devices[:s.opts.MaxDevices]
	}
	slog.Info("バッチ照合開始", logging.WithEventID("BATCH_START"), batchAttr, "devices", len(devices))

	// 3. ワーカープールで照合
	batchCtx := ctx
	if s.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, s.opts.BatchTimeout)
		defer cancel()
	}

	slots := make([]slot, len(devices))
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for i := range devices {
		slots[i].mac = devices[i].MAC
		if batchCtx.Err() != nil {
			// 停止・タイムアウト後は未着手の端末を実行しない
			slots[i].skipped = true
			continue
		}
		// SetLimitによりg.Goは空きワーカーを待つため、開始直前にも確認する
		g.Go(func() error {
			if batchCtx.Err() != nil {
				slots[i].skipped = true
				return nil
			}
			s.reconcile(batchCtx, report.BatchID, &devices[i], &slots[i])
			return nil
		})
	}
	_ = g.Wait()

	// 4. 集計と保存
	merge(report, slots)
	report.FinishedAt = s.now()
	s.save(ctx, report)

	slog.Info("バッチ照合完了",
		logging.WithEventID("BATCH_DONE"),
		batchAttr,
		"total", report.Total,
		"created", report.Created,
		"updated", report.Updated,
		"disabled", report.Disabled,
		"deleted", report.Deleted,
		"noop", report.NoOp,
		"failed", report.Failed,
		"skipped", report.Skipped,
		logging.WithLatency(report.Duration().Milliseconds()),
	)
	return report, nil
}

// reconcile は端末1件を照合し、結果をslotに書き込む。
// 照合はバッチのキャンセルから切り離し、個別のタイムアウトで完了させる。
func (s *Scheduler) reconcile(ctx context.Context, batchID string, d *model.Device, out *slot) {
	req, ok, err := s.request(d, batchID)
	if err != nil {
		out.err = err
		return
	}
	if !ok {
		out.skipped = true
		slog.Debug("VLANを決定できないためスキップ",
			logging.WithEventID("BATCH_SKIP"),
			logging.WithBatchID(batchID),
			logging.FieldMAC, d.MAC,
		)
		return
	}

	rctx := context.WithoutCancel(ctx)
	if s.opts.ReconcileTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, s.opts.ReconcileTimeout)
		defer cancel()
	}
	out.outcome, out.err = s.rec.Reconcile(rctx, req)
}

// request は端末情報から照合要求を組み立てる。
// アクティブな端末はadd、非アクティブな端末はsoft_deletionに応じてdisableまたはremoveとなる。
// addでVLANを決定できない場合はok=false。
func (s *Scheduler) request(d *model.Device, batchID string) (*engine.Request, bool, error) {
	addr, err := mac.Parse(d.MAC)
	if err != nil {
		return nil, false, err
	}

	req := &engine.Request{
		MAC:     addr,
		VlanID:  d.VlanID,
		TraceID: batchID,
	}
	if req.VlanID == engine.AnyVlan && s.opts.Table != nil {
		if vlan, ok := s.opts.Table.ResolveVlan(d.Attributes); ok {
			req.VlanID = vlan
		}
	}

	switch {
	case d.Active:
		req.Action = engine.ActionAdd
		if req.VlanID == engine.AnyVlan {
			return nil, false, nil
		}
	case s.opts.SoftDeletion.RetireAction() == policy.RetireDisable:
		req.Action = engine.ActionDisable
	default:
		req.Action = engine.ActionRemove
	}
	return req, true, nil
}

func (s *Scheduler) abort(ctx context.Context, report *model.BatchReport, err error) (*model.BatchReport, error) {
	report.Aborted = true
	report.AbortReason = err.Error()
	report.FinishedAt = s.now()
	slog.Error("バッチ照合中断、次の周期で再実行",
		logging.WithEventID("BATCH_ABORT"),
		logging.WithBatchID(report.BatchID),
		logging.WithError(err),
	)
	s.save(ctx, report)
	return report, err
}

func (s *Scheduler) save(ctx context.Context, report *model.BatchReport) {
	if s.reports == nil {
		return
	}
	if err := s.reports.SaveLast(context.WithoutCancel(ctx), report); err != nil {
		slog.Warn("レポート保存失敗",
			logging.WithEventID("REPORT_SAVE_ERR"),
			logging.WithBatchID(report.BatchID),
			logging.WithError(err),
		)
	}
}

func (s *Scheduler) prune(ctx context.Context) {
	if s.pruner == nil || s.opts.PruneAfter <= 0 || ctx.Err() != nil {
		return
	}
	n, err := s.pruner.Prune(ctx, s.now().Add(-s.opts.PruneAfter))
	if err != nil {
		slog.Warn("端末レジストリの整理失敗", logging.WithEventID("DEVICE_PRUNE_ERR"), logging.WithError(err))
		return
	}
	if n > 0 {
		slog.Info("端末レジストリを整理", logging.WithEventID("DEVICE_PRUNE"), "removed", n)
	}
}
