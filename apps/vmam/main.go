// Package main はvmam（VLAN Mac-address Authentication Manager）のエントリーポイント。
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
)

const usage = `vmam - VLAN Mac-address Authentication Manager

Usage:
  vmam [-v] config (--new [PATH] | --get-cmd) [-c PATH]
  vmam [-v] start [-c PATH] [-d]
  vmam [-v] mac (--add MAC | --remove MAC | --disable MAC) --vlan-id ID [-c PATH] [-f]
`

// env はサブコマンド間で共有する実行環境
type env struct {
	stdout   io.Writer
	stderr   io.Writer
	verbose  bool
	platform config.Platform
}

func main() {
	e := &env{
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		platform: config.DetectPlatform(),
	}
	if err := run(os.Args[1:], e); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run はグローバルフラグを解析し、サブコマンドへ振り分ける。
func run(args []string, e *env) error {
	fs := pflag.NewFlagSet("vmam", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(e.stderr)
	fs.BoolVarP(&e.verbose, "verbose", "v", false, "enable verbosity, for debugging process")
	fs.Usage = func() { fmt.Fprint(e.stderr, usage) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("action is required: config, start or mac")
	}

	switch rest[0] {
	case "config":
		return runConfig(rest[1:], e)
	case "start":
		return runStart(rest[1:], e)
	case "mac":
		return runMac(rest[1:], e)
	}
	fs.Usage()
	return fmt.Errorf("unknown action: %s", rest[0])
}

// newFlagSet はサブコマンド用のFlagSetを生成する。-v はどの位置でも受け付ける。
func newFlagSet(name string, e *env) *pflag.FlagSet {
	fs := pflag.NewFlagSet("vmam "+name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.BoolVarP(&e.verbose, "verbose", "v", e.verbose, "enable verbosity, for debugging process")
	return fs
}

// parseFlags はfsを解析する。--helpの場合はok=falseで戻る。
func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	if fs.NArg() > 0 {
		return false, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return true, nil
}
