package server

import (
	"context"
	"errors"
	"net"
	"testing"
)

// fakeClientStore はテスト用のClientStore実装
type fakeClientStore struct {
	secrets map[string]string
	err     error
}

func (f *fakeClientStore) GetClientSecret(_ context.Context, ip string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.secrets[ip], nil
}

func TestRADIUSSecret(t *testing.T) {
	registered := &fakeClientStore{secrets: map[string]string{"192.168.1.1": "nas-secret"}}
	broken := &fakeClientStore{err: errors.New("valkey unavailable")}

	tests := []struct {
		name     string
		source   *DynamicSecretSource
		addr     net.Addr
		expected string
	}{
		{"登録済みNAS", NewSecretSource(registered, "fallback"), &net.UDPAddr{IP: net.ParseIP("192.168.1.1"), Port: 1813}, "nas-secret"},
		{"未登録NAS・フォールバック", NewSecretSource(registered, "fallback"), &net.UDPAddr{IP: net.ParseIP("192.168.1.2"), Port: 1813}, "fallback"},
		{"未登録NAS・フォールバックなし", NewSecretSource(registered, ""), &net.UDPAddr{IP: net.ParseIP("192.168.1.2"), Port: 1813}, ""},
		{"Valkeyエラー", NewSecretSource(broken, "fallback"), &net.UDPAddr{IP: net.ParseIP("192.168.1.1"), Port: 1813}, "fallback"},
		{"Valkey無効", NewSecretSource(nil, "fallback"), &net.UDPAddr{IP: net.ParseIP("192.168.1.1"), Port: 1813}, "fallback"},
		{"アドレス不明", NewSecretSource(registered, "fallback"), nil, "fallback"},
		{"UDPAddr以外", NewSecretSource(registered, ""), &mockAddr{addr: "192.168.1.1:1813"}, "nas-secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.source.RADIUSSecret(context.Background(), tt.addr)
			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("secret = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name string
		addr net.Addr
		want string
	}{
		{"nil", nil, ""},
		{"UDPAddr", &net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 1813}, "10.0.0.1"},
		{"文字列", &mockAddr{addr: "10.0.0.2:1813"}, "10.0.0.2"},
		{"ポートなし", &mockAddr{addr: "10.0.0.3"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractIP(tt.addr); got != tt.want {
				t.Errorf("extractIP = %q, want %q", got, tt.want)
			}
		})
	}
}
