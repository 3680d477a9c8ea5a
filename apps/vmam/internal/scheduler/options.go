package scheduler

import (
	"time"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/apps/vmam/internal/policy"
)

// Options はスケジューラーの動作設定。
type Options struct {
	Interval         time.Duration // バッチ間隔（time_computer_sync）
	MaxDevices       int           // 1バッチの最大端末数（0は無制限）
	Workers          int           // 同時照合数
	BatchTimeout     time.Duration // これを過ぎると未着手の端末はskipped
	ReconcileTimeout time.Duration // 1件ごとの照合タイムアウト
	Table            *policy.Table // VLANヒントがない端末の照合に使う
	SoftDeletion     policy.SoftDeletion
	PruneAfter       time.Duration // 0は削除しない
}

// OptionsFromFile は設定ファイルと実行時設定からOptionsを生成する。
func OptionsFromFile(f *config.File, cfg *config.Config) (Options, error) {
	interval, err := f.SyncInterval()
	if err != nil {
		return Options{}, err
	}
	table, err := f.PolicyTable()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Interval:         interval,
		MaxDevices:       f.LDAP.MaxComputerSync,
		Workers:          cfg.Workers,
		BatchTimeout:     cfg.BatchTimeout,
		ReconcileTimeout: cfg.ReconcileTimeout,
		Table:            table,
		SoftDeletion:     f.SoftDeletion(),
		PruneAfter:       config.DeviceTTL,
	}, nil
}

func (o *Options) normalize() {
	if o.Interval <= 0 {
		o.Interval = config.DefaultSyncInterval
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Workers > config.MaxWorkers {
		o.Workers = config.MaxWorkers
	}
}
