package valkey

import (
	"testing"
	"time"
)

func TestOptionsPresets(t *testing.T) {
	tests := []struct {
		name        string
		opts        *Options
		wantConnect time.Duration
		wantPool    int
		wantIdle    int
		wantRetries int
	}{
		{"daemon", DefaultOptions(), 3 * time.Second, 10, 2, 3},
		{"cli", CLIOptions(), 5 * time.Second, 2, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.opts.Addr != "localhost:6379" {
				t.Errorf("Addr = %q", tt.opts.Addr)
			}
			if tt.opts.ConnectTimeout != tt.wantConnect {
				t.Errorf("ConnectTimeout = %v, want %v", tt.opts.ConnectTimeout, tt.wantConnect)
			}
			if tt.opts.PoolSize != tt.wantPool || tt.opts.MinIdleConns != tt.wantIdle {
				t.Errorf("pool = (%d, %d), want (%d, %d)", tt.opts.PoolSize, tt.opts.MinIdleConns, tt.wantPool, tt.wantIdle)
			}
			if tt.opts.MaxRetries != tt.wantRetries {
				t.Errorf("MaxRetries = %d, want %d", tt.opts.MaxRetries, tt.wantRetries)
			}
		})
	}
}

func TestOptionsBuilder(t *testing.T) {
	opts := DefaultOptions().
		WithAddr("[2001:db8::1]:6380").
		WithPassword("secret").
		WithTimeouts(5*time.Second, 3*time.Second, 4*time.Second).
		WithPool(64, 8)

	ro := opts.redisOptions()
	if ro.Addr != "[2001:db8::1]:6380" || ro.Password != "secret" {
		t.Errorf("addr/password = %q/%q", ro.Addr, ro.Password)
	}
	if ro.DialTimeout != 5*time.Second || ro.ReadTimeout != 3*time.Second || ro.WriteTimeout != 4*time.Second {
		t.Errorf("timeouts = %v/%v/%v", ro.DialTimeout, ro.ReadTimeout, ro.WriteTimeout)
	}
	if ro.PoolSize != 64 || ro.MinIdleConns != 8 {
		t.Errorf("pool = %d/%d", ro.PoolSize, ro.MinIdleConns)
	}
	if ro.MaxRetries != 3 || ro.MaxRetryBackoff != time.Second {
		t.Errorf("retries = %d/%v", ro.MaxRetries, ro.MaxRetryBackoff)
	}
}
