package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oyaguma3/vmam/apps/vmam/internal/directory"
	"github.com/oyaguma3/vmam/apps/vmam/internal/engine"
	"github.com/oyaguma3/vmam/apps/vmam/internal/store"
	"github.com/oyaguma3/vmam/pkg/logging"
	"github.com/oyaguma3/vmam/pkg/valkey"
)

// components は手動操作とデーモンで共通の依存関係
type components struct {
	ldap   *directory.LDAPClient
	dir    directory.Client
	valkey *store.ValkeyClient // REDIS_HOST未設定の場合はnil
	engine *engine.Engine
	fields *logging.CommonFields
}

// buildComponents はディレクトリクライアントと照合エンジンを組み立てる。
// LDAPClient → RateLimitedClient → BreakerClient の順に包む。
// valkeyOptsがnilの場合は常駐プロセス向けの既定値で接続する。
func buildComponents(ctx context.Context, l *loaded, valkeyOpts *valkey.Options) (*components, error) {
	c := &components{
		fields: logging.NewCommonFields(logging.NewMasker(l.cfg.LogMaskMAC)),
	}

	// 1. ディレクトリクライアント
	c.ldap = directory.NewLDAPClient(l.file, l.cfg)
	limited := directory.NewRateLimitedClient(c.ldap, l.cfg.DirectoryRate, l.cfg.DirectoryBurst)
	c.dir = directory.NewBreakerClient(limited)

	// 2. Valkey（任意）
	var locker engine.Locker
	if l.cfg.ValkeyEnabled() {
		vc, err := store.NewValkeyClient(ctx, l.cfg, valkeyOpts)
		if err != nil {
			c.close()
			return nil, fmt.Errorf("valkey: %w", err)
		}
		c.valkey = vc
		locker = store.NewLockStore(vc, l.cfg.LockTTL)
		slog.Info("Valkey接続完了", logging.WithEventID("VALKEY_CONNECTED"), "addr", l.cfg.ValkeyAddr())
	}

	// 3. 照合エンジン
	opts, err := engine.OptionsFromFile(l.file, l.cfg)
	if err != nil {
		c.close()
		return nil, err
	}
	c.engine = engine.New(c.dir, opts, locker, c.fields)
	return c, nil
}

func (c *components) close() {
	if c.valkey != nil {
		if err := c.valkey.Close(); err != nil {
			slog.Warn("Valkey切断エラー", logging.WithEventID("VALKEY_CLOSE_ERR"), logging.WithError(err))
		}
	}
	if c.ldap != nil {
		c.ldap.Close()
	}
}
