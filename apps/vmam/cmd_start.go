package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"layeh.com/radius"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/apps/vmam/internal/discovery"
	"github.com/oyaguma3/vmam/apps/vmam/internal/scheduler"
	"github.com/oyaguma3/vmam/apps/vmam/internal/server"
	"github.com/oyaguma3/vmam/apps/vmam/internal/status"
	"github.com/oyaguma3/vmam/apps/vmam/internal/store"
	"github.com/oyaguma3/vmam/pkg/logging"
)

// runStart は `vmam start` を実行する。SIGTERM/SIGINTで停止する。
func runStart(args []string, e *env) error {
	var (
		configFile string
		daemon     bool
	)
	fs := newFlagSet("start", e)
	fs.StringVarP(&configFile, "config-file", "c", "", "parse configuration file")
	fs.BoolVarP(&daemon, "daemon", "d", false, "start automatic process as a daemon")

	ok, err := parseFlags(fs, args)
	if !ok {
		return err
	}

	// 1. 設定読み込み
	l, err := loadConfig(configFile, e)
	if err != nil {
		return err
	}

	// 2. ロガー初期化
	closeLog := setupLogger(l, e.stdout, e.verbose)
	defer closeLog()

	slog.Info("vmam起動開始",
		logging.WithEventID("APP_START"),
		"config_file", l.path,
		"daemon", daemon,
	)
	if daemon {
		// プロセスの切り離しはサービスマネージャーに任せる
		slog.Info("フォアグラウンドで常駐します", logging.WithEventID("APP_DAEMON"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 3. 共通依存関係
	c, err := buildComponents(ctx, l, nil)
	if err != nil {
		return err
	}
	defer c.close()

	// 4. 端末レジストリ・レポート保存先
	var (
		devices store.DeviceStore
		reports store.ReportStore = &status.ReportCache{}
		pruner  scheduler.Pruner
		sources []discovery.Source
	)
	if c.valkey != nil {
		devices = store.NewDeviceStore(c.valkey)
		reports = store.NewReportStore(c.valkey)
		pruner = devices
		sources = append(sources, discovery.NewValkeySource(devices, l.cfg.DeviceStaleAfter))
	}

	// 5. 端末検出元
	if l.cfg.DiscoveryURL != "" {
		sources = append(sources, discovery.NewHTTPSource(l.cfg.DiscoveryURL))
	}
	if len(sources) == 0 {
		return errors.New("no discovery source configured: set VMAM_DISCOVERY_URL or REDIS_HOST")
	}

	// 6. スケジューラー
	schedOpts, err := scheduler.OptionsFromFile(l.file, l.cfg)
	if err != nil {
		return err
	}
	sched := scheduler.New(c.engine, discovery.NewMultiSource(sources...), c.ldap, reports, pruner, schedOpts)

	// 7. RADIUS Accounting受信（任意）
	var acctSrv *server.Server
	if l.cfg.AcctListenAddr != "" {
		secrets := server.NewSecretSource(store.NewClientStore(c.valkey), l.cfg.RadiusSecret)
		acctSrv = server.NewServer(l.cfg.AcctListenAddr, server.NewHandler(devices, c.fields), secrets)
		go func() {
			slog.Info("RADIUS Accounting受信開始", logging.WithEventID("ACCT_LISTEN"), "addr", l.cfg.AcctListenAddr)
			if err := acctSrv.ListenAndServe(); err != nil && !errors.Is(err, radius.ErrServerShutdown) {
				slog.Error("RADIUSサーバーエラー", logging.WithEventID("ACCT_SERVER_ERR"), logging.WithError(err))
			}
		}()
	}

	// 8. ステータスAPI（任意）
	var statusSrv *status.Server
	if l.cfg.StatusListenAddr != "" {
		router := status.NewRouter(status.NewHandler(c.ldap, reports), l.cfg.GinMode)
		statusSrv = status.NewServer(l.cfg.StatusListenAddr, router)
		go func() {
			slog.Info("ステータスAPI起動", logging.WithEventID("STATUS_LISTEN"), "addr", l.cfg.StatusListenAddr)
			if err := statusSrv.ListenAndServe(); err != nil {
				slog.Error("ステータスAPIエラー", logging.WithEventID("STATUS_SERVER_ERR"), logging.WithError(err))
			}
		}()
	}

	// 9. バッチ照合ループ（シグナル受信まで）
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	// 10. Graceful Shutdown
	slog.Info("シグナル受信、シャットダウン開始", logging.WithEventID("APP_SHUTDOWN"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if acctSrv != nil {
		if err := acctSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("RADIUSサーバー停止エラー", logging.WithEventID("ACCT_SHUTDOWN_ERR"), logging.WithError(err))
		}
	}
	if statusSrv != nil {
		if err := statusSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("ステータスAPI停止エラー", logging.WithEventID("STATUS_SHUTDOWN_ERR"), logging.WithError(err))
		}
	}

	slog.Info("vmam停止完了", logging.WithEventID("APP_STOP"))
	return nil
}
