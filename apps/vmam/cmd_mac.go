package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/oyaguma3/vmam/apps/vmam/internal/engine"
	"github.com/oyaguma3/vmam/apps/vmam/internal/mac"
	"github.com/oyaguma3/vmam/pkg/valkey"
)

// runMac は `vmam mac` を実行する。最初のエラーで終了コード1になる。
func runMac(args []string, e *env) error {
	var (
		add, remove, disable string
		vlanID               int
		configFile           string
		force                bool
	)
	fs := newFlagSet("mac", e)
	fs.StringVarP(&add, "add", "a", "", "add mac-address to LDAP server")
	fs.StringVarP(&remove, "remove", "r", "", "remove mac-address from LDAP server")
	fs.StringVarP(&disable, "disable", "d", "", "disable mac-address on LDAP server")
	fs.IntVarP(&vlanID, "vlan-id", "i", 0, "vlan-id number")
	fs.StringVarP(&configFile, "config-file", "c", "", "parse configuration file")
	fs.BoolVarP(&force, "force", "f", false, "force action")

	ok, err := parseFlags(fs, args)
	if !ok {
		return err
	}

	action, raw, err := macAction(fs.Changed("add"), fs.Changed("remove"), fs.Changed("disable"), add, remove, disable)
	if err != nil {
		return err
	}
	if !fs.Changed("vlan-id") {
		return errors.New("--vlan-id is required")
	}
	addr, err := mac.Parse(raw)
	if err != nil {
		return err
	}

	// 1. 設定読み込み
	l, err := loadConfig(configFile, e)
	if err != nil {
		return err
	}

	// 2. ロガー初期化
	closeLog := setupLogger(l, e.stderr, e.verbose)
	defer closeLog()

	// 3. 依存関係組み立て
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.ReconcileTimeout)
	defer cancel()
	c, err := buildComponents(ctx, l, valkey.CLIOptions())
	if err != nil {
		return err
	}
	defer c.close()

	// 4. 照合
	out, err := c.engine.Reconcile(ctx, &engine.Request{
		MAC:     addr,
		VlanID:  vlanID,
		Action:  action,
		Force:   force,
		TraceID: uuid.NewString(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s %s: %s (%s)\n", out.Action, out.Key, out.Kind, out.Reason)
	if out.Warning != "" {
		fmt.Fprintf(e.stdout, "warning: %s\n", out.Warning)
	}
	return nil
}

// macAction は排他フラグから操作と対象MACを決める。
func macAction(isAdd, isRemove, isDisable bool, add, remove, disable string) (engine.Action, string, error) {
	n := 0
	for _, b := range []bool{isAdd, isRemove, isDisable} {
		if b {
			n++
		}
	}
	if n != 1 {
		return "", "", errors.New("exactly one of --add, --remove or --disable is required")
	}
	switch {
	case isAdd:
		return engine.ActionAdd, add, nil
	case isRemove:
		return engine.ActionRemove, remove, nil
	}
	return engine.ActionDisable, disable, nil
}
