package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/apps/vmam/internal/netcmd"
)

// runConfig は `vmam config` を実行する。
func runConfig(args []string, e *env) error {
	var (
		newPath    string
		getCmd     bool
		configFile string
	)
	fs := newFlagSet("config", e)
	fs.StringVarP(&newPath, "new", "n", "", "generate new configuration file")
	fs.Lookup("new").NoOptDefVal = e.platform.ConfigPath
	fs.BoolVarP(&getCmd, "get-cmd", "g", false, "get information for a radius server and switch/router")
	fs.StringVarP(&configFile, "config-file", "c", "", "parse configuration file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// NoOptDefValを設定したフラグは "--new PATH" の PATH を位置引数として扱うため補正する
	isNew := fs.Changed("new")
	rest := fs.Args()
	if isNew && len(rest) == 1 && newPath == e.platform.ConfigPath {
		newPath, rest = rest[0], nil
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}
	switch {
	case isNew && getCmd:
		return errors.New("--new and --get-cmd are mutually exclusive")
	case isNew:
		return newConfig(newPath, e)
	case getCmd:
		l, err := loadConfig(configFile, e)
		if err != nil {
			return err
		}
		return netcmd.Render(e.stdout, l.file)
	}
	return errors.New("one of --new or --get-cmd is required")
}

// newConfig は雛形の設定ファイルを生成する。既存ファイルは上書きしない。
func newConfig(path string, e *env) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file %s already exists", path)
	}
	if err := config.WriteFile(config.NewTemplate(e.platform), path); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "new configuration file created: %s\n", path)
	return nil
}
