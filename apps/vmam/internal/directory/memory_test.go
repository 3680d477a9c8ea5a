package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/oyaguma3/vmam/pkg/apperr"
)

func TestMemoryClientLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryClient()

	got, err := m.FindByMAC(ctx, "000018ff12dd")
	if err != nil || got != nil {
		t.Fatalf("未登録: got=%v err=%v", got, err)
	}

	id := &Identity{Key: "000018ff12dd", Enabled: true, Groups: []string{"vlan110"}}
	id.SetAttr("extensionAttribute1", "110")
	if err := m.Create(ctx, id); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	// 呼び出し側の変更が反映されないこと
	id.Groups[0] = "changed"

	got, err = m.FindByMAC(ctx, "000018FF12DD")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if !got.InGroup("vlan110") {
		t.Errorf("Groups = %v", got.Groups)
	}
	if v := got.Attr("EXTENSIONATTRIBUTE1"); len(v) != 1 || v[0] != "110" {
		t.Errorf("Attr = %v", v)
	}

	enable := false
	diff := &AttributeDiff{
		Replace:      map[string][]string{"extensionattribute1": {"111"}},
		AddGroups:    []string{"vlan111"},
		RemoveGroups: []string{"VLAN110"},
		Enable:       &enable,
	}
	if err := m.Modify(ctx, "000018ff12dd", diff); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	got, _ = m.Get("000018ff12dd")
	if got.InGroup("vlan110") || !got.InGroup("vlan111") {
		t.Errorf("Groups = %v", got.Groups)
	}
	if got.Enabled {
		t.Error("Enabled = true, want false")
	}

	if err := m.SetEnabled(ctx, "000018ff12dd", true); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if err := m.Delete(ctx, "000018ff12dd"); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
	if m.Mutations() != 4 {
		t.Errorf("Mutations = %d, want 4", m.Mutations())
	}
}

func TestMemoryClientErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryClient()
	m.Seed(&Identity{Key: "aabbccddeeff", Enabled: true})

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"重複作成", func() error { return m.Create(ctx, &Identity{Key: "AABBCCDDEEFF"}) }, apperr.ErrDirectoryConflict},
		{"未登録の変更", func() error { return m.Modify(ctx, "001122334455", &AttributeDiff{AddGroups: []string{"g"}}) }, apperr.ErrDirectoryNotFound},
		{"未登録の無効化", func() error { return m.SetEnabled(ctx, "001122334455", false) }, apperr.ErrDirectoryNotFound},
		{"未登録の削除", func() error { return m.Delete(ctx, "001122334455") }, apperr.ErrDirectoryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if m.Mutations() != 0 {
		t.Errorf("Mutations = %d, want 0", m.Mutations())
	}
}

func TestMemoryClientFailNext(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryClient()
	injected := apperr.NewDirectoryError(apperr.DirectoryTimeout, OpFind, "x", nil)
	m.FailNext(OpFind, injected)

	if _, err := m.FindByMAC(ctx, "aabbccddeeff"); !errors.Is(err, apperr.ErrDirectoryTimeout) {
		t.Fatalf("注入エラーが返らない: %v", err)
	}
	if _, err := m.FindByMAC(ctx, "aabbccddeeff"); err != nil {
		t.Fatalf("2回目は成功するはず: %v", err)
	}
	if m.Calls(OpFind) != 2 {
		t.Errorf("Calls = %d, want 2", m.Calls(OpFind))
	}
}

func TestMemoryClientPing(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryClient()
	if err := m.Ping(ctx); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	m.SetReachable(false)
	if err := m.Ping(ctx); !errors.Is(err, apperr.ErrDirectoryUnavailable) {
		t.Fatalf("Unavailableが期待された: %v", err)
	}
}

func TestMemoryClientCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemoryClient()
	if err := m.Create(ctx, &Identity{Key: "aabbccddeeff"}); !errors.Is(err, apperr.ErrDirectoryTimeout) {
		t.Fatalf("Timeoutが期待された: %v", err)
	}
	if m.Len() != 0 {
		t.Error("キャンセル後に作成された")
	}
}

func TestAttributeDiffIsEmpty(t *testing.T) {
	var nilDiff *AttributeDiff
	if !nilDiff.IsEmpty() {
		t.Error("nil diff should be empty")
	}
	if !(&AttributeDiff{}).IsEmpty() {
		t.Error("zero diff should be empty")
	}
	if (&AttributeDiff{AddGroups: []string{"g"}}).IsEmpty() {
		t.Error("diff with groups should not be empty")
	}
}
