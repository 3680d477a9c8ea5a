package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	applog "github.com/oyaguma3/vmam/apps/vmam/internal/logging"
)

// loaded は読み込み済みの設定一式
type loaded struct {
	cfg  *config.Config
	file *config.File
	path string
}

// loadConfig は.env・環境変数・設定ファイルの順に読み込む。
// 設定ファイルのパスはフラグ、VMAM_CONFIG_FILE、プラットフォーム既定値の順に決める。
func loadConfig(flagPath string, e *env) (*loaded, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	path := flagPath
	if path == "" {
		path = cfg.ConfigFile
	}
	if path == "" {
		path = e.platform.ConfigPath
	}

	f, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configuration file %s: %w", path, err)
	}
	return &loaded{cfg: cfg, file: f, path: path}, nil
}

// setupLogger はデフォルトロガーを設定する。ログファイルは設定ファイルのVMAM.log。
func setupLogger(l *loaded, stdout io.Writer, verbose bool) func() error {
	logger, closeFn := applog.Setup(applog.Options{
		Level:   l.cfg.SlogLevel(),
		Verbose: verbose,
		File:    l.file.VMAM.Log,
	}, stdout)
	slog.SetDefault(logger)
	return closeFn
}
