package store

import (
	"context"
	"testing"
	"time"
)

func TestLockLifecycle(t *testing.T) {
	mr, vc := newTestClient(t)
	s := NewLockStore(vc, time.Minute)
	ctx := context.Background()

	token, ok, err := s.TryLock(ctx, "000018ff12dd")
	if err != nil || !ok || token == "" {
		t.Fatalf("TryLock = %q, %v, %v", token, ok, err)
	}
	if ttl := mr.TTL(KeyPrefixLock + "000018ff12dd"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	// 保持中は取得できない
	_, ok, err = s.TryLock(ctx, "000018ff12dd")
	if err != nil || ok {
		t.Fatalf("二重取得: ok=%v err=%v", ok, err)
	}

	// トークン不一致では解放しない
	if err := s.Unlock(ctx, "000018ff12dd", "other"); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if !mr.Exists(KeyPrefixLock + "000018ff12dd") {
		t.Fatal("トークン不一致でロックが解放された")
	}

	if err := s.Unlock(ctx, "000018ff12dd", token); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if mr.Exists(KeyPrefixLock + "000018ff12dd") {
		t.Fatal("ロックが解放されていない")
	}

	if _, ok, _ := s.TryLock(ctx, "000018ff12dd"); !ok {
		t.Error("解放後に再取得できない")
	}
}

func TestLockExpires(t *testing.T) {
	mr, vc := newTestClient(t)
	s := NewLockStore(vc, time.Second)
	ctx := context.Background()

	if _, ok, _ := s.TryLock(ctx, "000018ff12dd"); !ok {
		t.Fatal("取得失敗")
	}
	mr.FastForward(2 * time.Second)

	if _, ok, _ := s.TryLock(ctx, "000018ff12dd"); !ok {
		t.Error("TTL経過後に再取得できない")
	}
}
