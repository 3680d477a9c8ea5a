package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oyaguma3/vmam/pkg/apperr"
)

func TestNewRateLimitedClientDisabled(t *testing.T) {
	m := NewMemoryClient()
	if c := NewRateLimitedClient(m, 0, 1); c != Client(m) {
		t.Error("rate=0 ではinnerがそのまま返るはず")
	}
}

func TestRateLimitedClientWaitTimeout(t *testing.T) {
	m := NewMemoryClient()
	m.Seed(&Identity{Key: "aabbccddeeff", Enabled: true})
	c := NewRateLimitedClient(m, 0.1, 1)

	// 1件目はバースト枠で即時
	if err := c.SetEnabled(context.Background(), "aabbccddeeff", false); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.SetEnabled(ctx, "aabbccddeeff", true)
	if !errors.Is(err, apperr.ErrDirectoryTimeout) {
		t.Fatalf("Timeoutが期待された: %v", err)
	}
	if m.Calls(OpSetEnabled) != 1 {
		t.Errorf("Calls = %d, want 1", m.Calls(OpSetEnabled))
	}

	// 検索は制限されない
	if _, err := c.FindByMAC(context.Background(), "aabbccddeeff"); err != nil {
		t.Errorf("予期しないエラー: %v", err)
	}
}
