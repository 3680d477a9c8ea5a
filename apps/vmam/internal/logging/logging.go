// Package logging はvmamのロガーを初期化する。
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// AppName はすべてのログ行に付与するアプリ名
const AppName = "vmam"

// Options はロガーの設定。
type Options struct {
	Level   slog.Level
	Verbose bool   // trueの場合はLevelに関わらずDEBUG
	File    string // 空の場合は標準出力のみ
}

// Setup はJSON形式のロガーを生成し、標準出力とログファイルへ書き出す。
// ログファイルを開けない場合は標準出力のみで続行する。
// 戻り値のクローズ関数はプロセス終了時に呼ぶこと。
func Setup(opts Options, stdout io.Writer) (*slog.Logger, func() error) {
	level := opts.Level
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var (
		w       = stdout
		closer  = func() error { return nil }
		fileErr error
	)
	if opts.File != "" {
		f, err := openLogFile(opts.File)
		if err != nil {
			fileErr = err
		} else {
			w = io.MultiWriter(stdout, f)
			closer = f.Close
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})).With("app", AppName)

	if fileErr != nil {
		logger.Warn("log file unavailable, logging to stdout only",
			"event_id", "LOG_FILE_ERR",
			"path", opts.File,
			"error", fileErr,
		)
	}
	return logger, closer
}

// openLogFile はディレクトリを作成したうえで追記モードで開く。
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
