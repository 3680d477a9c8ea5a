package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/oyaguma3/vmam/apps/vmam/internal/directory"
	"github.com/oyaguma3/vmam/apps/vmam/internal/engine"
	"github.com/oyaguma3/vmam/apps/vmam/internal/mac"
	"github.com/oyaguma3/vmam/apps/vmam/internal/mocks"
	"github.com/oyaguma3/vmam/apps/vmam/internal/policy"
	"github.com/oyaguma3/vmam/pkg/model"
)

// fakeReports は保存されたレポートを記録する。
type fakeReports struct {
	mu    sync.Mutex
	saved []*model.BatchReport
}

func (f *fakeReports) SaveLast(_ context.Context, r *model.BatchReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, r)
	return nil
}

type fakePruner struct {
	before time.Time
	calls  int
}

func (f *fakePruner) Prune(_ context.Context, before time.Time) (int, error) {
	f.before = before
	f.calls++
	return 1, nil
}

func newTestTable(t *testing.T) *policy.Table {
	t.Helper()
	table, err := policy.Load(
		map[int]string{110: "vlan110-users", 111: "vlan111-users"},
		map[string]int{"staff": 110, "guest": 111},
		policy.MatchExact,
	)
	if err != nil {
		t.Fatalf("policy.Load: %v", err)
	}
	return table
}

func newTestOptions(t *testing.T, softDeletion bool) Options {
	return Options{
		Interval:         time.Minute,
		Workers:          4,
		BatchTimeout:     time.Minute,
		ReconcileTimeout: 5 * time.Second,
		Table:            newTestTable(t),
		SoftDeletion:     policy.NewSoftDeletion(softDeletion),
	}
}

func newTestEngine(t *testing.T, dir directory.Client, softDeletion bool) *engine.Engine {
	t.Helper()
	filter, err := policy.NewExclusionFilter([]string{"00-11-22-*"})
	if err != nil {
		t.Fatalf("NewExclusionFilter: %v", err)
	}
	return engine.New(dir, engine.Options{
		Table:        newTestTable(t),
		Exclusion:    filter,
		SoftDeletion: policy.NewSoftDeletion(softDeletion),
		MacStyle:     mac.StyleNone,
		VerifyAttrib: []string{"memberof", "cn"},
		WriteAttrib:  []string{"extensionAttribute1", "extensionAttribute2"},
		StrictRemove: true,
	}, nil, nil)
}

func TestRunOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	dir := directory.NewMemoryClient()
	reports := &fakeReports{}

	dir.Seed(&directory.Identity{Key: "0a0b0c0d0e0f", Enabled: true, Groups: []string{"vlan110-users"}})

	src.EXPECT().Devices(gomock.Any(), 0).Return([]model.Device{
		{MAC: "00-00-18-FF-12-DD", VlanID: 110, Active: true},              // create
		{MAC: "aabbccddeeff", Active: true, Attributes: []string{"staff"}}, // user_match_idでvlan110
		{MAC: "0a:0b:0c:0d:0e:0f", Active: false},                          // soft_deletionでdisable
		{MAC: "00:11:22:33:44:55", VlanID: 110, Active: true},              // 除外
		{MAC: "zz", VlanID: 110, Active: true},                             // 不正なMAC
		{MAC: "0c0c0c0c0c0c", Active: true},                                // VLAN不明
	}, nil)

	s := New(newTestEngine(t, dir, true), src, dir, reports, nil, newTestOptions(t, true))
	r, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if r.Total != 6 || r.Created != 2 || r.Disabled != 1 || r.NoOp != 1 || r.Failed != 1 || r.Skipped != 1 {
		t.Errorf("report = %+v", r)
	}
	if len(r.Failures) != 1 || r.Failures[0].Kind != FailureValidation || r.Failures[0].MAC != "zz" {
		t.Errorf("Failures = %+v", r.Failures)
	}
	if r.BatchID == "" || r.FinishedAt.Before(r.StartedAt) {
		t.Errorf("BatchID/時刻が不正: %+v", r)
	}

	if id, ok := dir.Get("000018ff12dd"); !ok || !id.InGroup("vlan110-users") {
		t.Error("000018ff12dd がvlan110-usersに作成されていない")
	}
	if id, _ := dir.Get("0a0b0c0d0e0f"); id == nil || id.Enabled {
		t.Error("0a0b0c0d0e0f が無効化されていない")
	}
	if len(reports.saved) != 1 || reports.saved[0] != r {
		t.Errorf("レポートが保存されていない: %d", len(reports.saved))
	}
}

func TestRunOnceIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	dir := directory.NewMemoryClient()

	devices := []model.Device{{MAC: "000018ff12dd", VlanID: 110, Active: true}}
	src.EXPECT().Devices(gomock.Any(), gomock.Any()).Return(devices, nil).Times(2)

	s := New(newTestEngine(t, dir, true), src, dir, nil, nil, newTestOptions(t, true))

	first, err := s.RunOnce(context.Background())
	if err != nil || first.Created != 1 {
		t.Fatalf("1回目: report=%+v err=%v", first, err)
	}
	mutations := dir.Mutations()

	second, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if second.NoOp != 1 || second.Mutations() != 0 {
		t.Errorf("2回目 = %+v, want NoOpのみ", second)
	}
	if dir.Mutations() != mutations {
		t.Errorf("2回目でディレクトリが変更された: %d -> %d", mutations, dir.Mutations())
	}
}

func TestRunOnceDirectoryUnreachable(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	rec := mocks.NewMockReconciler(ctrl)
	dir := directory.NewMemoryClient()
	reports := &fakeReports{}

	dir.SetReachable(false)
	src.EXPECT().Devices(gomock.Any(), gomock.Any()).Times(0)
	rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).Times(0)

	s := New(rec, src, dir, reports, nil, newTestOptions(t, true))
	r, err := s.RunOnce(context.Background())

	if !errors.Is(err, ErrDirectoryUnreachable) {
		t.Fatalf("ErrDirectoryUnreachableを期待: %v", err)
	}
	if !r.Aborted || r.AbortReason == "" || r.Mutations() != 0 {
		t.Errorf("report = %+v", r)
	}
	if dir.Mutations() != 0 {
		t.Errorf("Mutations = %d, want 0", dir.Mutations())
	}
	if len(reports.saved) != 1 || !reports.saved[0].Aborted {
		t.Error("中断レポートが保存されていない")
	}
}

func TestRunOnceDiscoveryFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	dir := directory.NewMemoryClient()

	src.EXPECT().Devices(gomock.Any(), gomock.Any()).Return(nil, errors.New("upstream down"))

	s := New(newTestEngine(t, dir, true), src, dir, nil, nil, newTestOptions(t, true))
	r, err := s.RunOnce(context.Background())

	if !errors.Is(err, ErrDiscoveryFailed) {
		t.Fatalf("ErrDiscoveryFailedを期待: %v", err)
	}
	if !r.Aborted {
		t.Error("Aborted = false, want true")
	}
}

func TestRunOnceFailureIsolation(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	dir := directory.NewMemoryClient()

	// vlan111に割り当て済みのIDにvlan110を要求すると競合
	bound := &directory.Identity{Key: "000018ff12dd", Enabled: true, Groups: []string{"vlan111-users"}}
	bound.SetAttr("cn", "000018ff12dd")
	bound.SetAttr("extensionattribute1", "111")
	dir.Seed(bound)

	src.EXPECT().Devices(gomock.Any(), gomock.Any()).Return([]model.Device{
		{MAC: "000018ff12dd", VlanID: 110, Active: true},
		{MAC: "aabbccddeeff", VlanID: 999, Active: true},
		{MAC: "0a0b0c0d0e0f", VlanID: 111, Active: true},
	}, nil)

	s := New(newTestEngine(t, dir, true), src, dir, nil, nil, newTestOptions(t, true))
	r, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if r.Created != 1 || r.Failed != 2 || r.Conflicts != 1 {
		t.Errorf("report = %+v", r)
	}
	kinds := map[string]string{}
	for _, f := range r.Failures {
		kinds[f.MAC] = f.Kind
	}
	if kinds["000018ff12dd"] != FailureConflict || kinds["aabbccddeeff"] != FailurePolicy {
		t.Errorf("Failures = %+v", r.Failures)
	}
	if id, _ := dir.Get("000018ff12dd"); !id.InGroup("vlan111-users") {
		t.Error("競合したIDが変更された")
	}
}

func TestRunOnceMaxDevices(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	rec := mocks.NewMockReconciler(ctrl)
	dir := directory.NewMemoryClient()

	// 取得元がlimitを守らなくても切り詰める
	src.EXPECT().Devices(gomock.Any(), 2).Return([]model.Device{
		{MAC: "000000000001", VlanID: 110, Active: true},
		{MAC: "000000000002", VlanID: 110, Active: true},
		{MAC: "000000000003", VlanID: 110, Active: true},
	}, nil)
	rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).
		Return(&engine.Outcome{Kind: engine.KindNoOp}, nil).Times(2)

	opts := newTestOptions(t, true)
	opts.MaxDevices = 2
	r, err := New(rec, src, dir, nil, nil, opts).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if r.Total != 2 || r.NoOp != 2 {
		t.Errorf("report = %+v", r)
	}
}

func TestRunOnceBatchTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	rec := mocks.NewMockReconciler(ctrl)
	dir := directory.NewMemoryClient()

	src.EXPECT().Devices(gomock.Any(), gomock.Any()).Return([]model.Device{
		{MAC: "000000000001", VlanID: 110, Active: true},
		{MAC: "000000000002", VlanID: 110, Active: true},
		{MAC: "000000000003", VlanID: 110, Active: true},
	}, nil)
	rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *engine.Request) (*engine.Outcome, error) {
			time.Sleep(60 * time.Millisecond)
			// バッチのタイムアウトは着手済みの照合を中断しない
			if ctx.Err() != nil {
				t.Errorf("照合コンテキストがキャンセルされた: %v", ctx.Err())
			}
			return &engine.Outcome{Kind: engine.KindNoOp}, nil
		}).Times(1)

	opts := newTestOptions(t, true)
	opts.Workers = 1
	opts.BatchTimeout = 20 * time.Millisecond

	r, err := New(rec, src, dir, nil, nil, opts).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	// ワーカー待ちの端末もタイムアウト後は開始しない
	if r.Total != 3 || r.NoOp != 1 || r.Skipped != 2 {
		t.Errorf("report = %+v", r)
	}
}

func TestRunOnceNoDispatchAfterCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	rec := mocks.NewMockReconciler(ctrl)
	dir := directory.NewMemoryClient()

	src.EXPECT().Devices(gomock.Any(), gomock.Any()).Return([]model.Device{
		{MAC: "000000000001", VlanID: 110, Active: true},
		{MAC: "000000000002", VlanID: 110, Active: true},
		{MAC: "000000000003", VlanID: 110, Active: true},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	started := 0
	rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *engine.Request) (*engine.Outcome, error) {
			mu.Lock()
			started++
			mu.Unlock()
			// 照合中に停止シグナルを受けた状態を再現する
			cancel()
			time.Sleep(50 * time.Millisecond)
			return &engine.Outcome{Kind: engine.KindCreate}, nil
		}).Times(1)

	opts := newTestOptions(t, true)
	opts.Workers = 1

	r, err := New(rec, src, dir, nil, nil, opts).RunOnce(ctx)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if started != 1 {
		t.Errorf("開始された照合 = %d, want 1", started)
	}
	if r.Created != 1 || r.Skipped != 2 {
		t.Errorf("report = %+v", r)
	}
}

func TestRunOnceWorkerLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	rec := mocks.NewMockReconciler(ctrl)
	dir := directory.NewMemoryClient()

	devices := make([]model.Device, 8)
	for i := range devices {
		devices[i] = model.Device{MAC: fmt.Sprintf("%012x", i), VlanID: 110, Active: true}
	}
	src.EXPECT().Devices(gomock.Any(), gomock.Any()).Return(devices, nil)

	var mu sync.Mutex
	running, peak := 0, 0
	rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *engine.Request) (*engine.Outcome, error) {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			return &engine.Outcome{Kind: engine.KindCreate}, nil
		}).Times(8)

	opts := newTestOptions(t, true)
	opts.Workers = 2
	r, err := New(rec, src, dir, nil, nil, opts).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if r.Created != 8 {
		t.Errorf("Created = %d, want 8", r.Created)
	}
	if peak > 2 {
		t.Errorf("同時実行数 = %d, want <= 2", peak)
	}
}

func TestRequest(t *testing.T) {
	tests := []struct {
		name       string
		soft       bool
		device     model.Device
		wantOK     bool
		wantErr    bool
		wantAction engine.Action
		wantVlan   int
	}{
		{"アクティブ・VLAN指定", true, model.Device{MAC: "000018ff12dd", VlanID: 110, Active: true}, true, false, engine.ActionAdd, 110},
		{"アクティブ・属性から決定", true, model.Device{MAC: "000018ff12dd", Active: true, Attributes: []string{"guest"}}, true, false, engine.ActionAdd, 111},
		{"アクティブ・VLAN不明", true, model.Device{MAC: "000018ff12dd", Active: true}, false, false, "", 0},
		{"非アクティブ・soft_deletion有効", true, model.Device{MAC: "000018ff12dd"}, true, false, engine.ActionDisable, 0},
		{"非アクティブ・soft_deletion無効", false, model.Device{MAC: "000018ff12dd", VlanID: 110}, true, false, engine.ActionRemove, 110},
		{"不正なMAC", true, model.Device{MAC: "00:00:18", VlanID: 110, Active: true}, false, true, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil, nil, nil, nil, nil, newTestOptions(t, tt.soft))
			req, ok, err := s.request(&tt.device, "batch-1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if req.Action != tt.wantAction || req.VlanID != tt.wantVlan || req.TraceID != "batch-1" {
				t.Errorf("req = %+v", req)
			}
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	dir := directory.NewMemoryClient()
	pruner := &fakePruner{}

	ctx, cancel := context.WithCancel(context.Background())
	src.EXPECT().Devices(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, int) ([]model.Device, error) {
			cancel()
			return nil, nil
		})

	s := New(newTestEngine(t, dir, true), src, dir, nil, pruner, newTestOptions(t, true))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Runが停止しない")
	}
	if pruner.calls != 0 {
		t.Errorf("停止後に整理が実行された: %d", pruner.calls)
	}
}

func TestPrune(t *testing.T) {
	pruner := &fakePruner{}
	opts := newTestOptions(t, true)
	opts.PruneAfter = time.Hour

	s := New(nil, nil, nil, nil, pruner, opts)
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	s.prune(context.Background())
	if pruner.calls != 1 || !pruner.before.Equal(now.Add(-time.Hour)) {
		t.Errorf("calls=%d before=%v", pruner.calls, pruner.before)
	}
}
