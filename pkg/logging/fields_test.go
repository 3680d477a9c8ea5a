package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWithTraceID(t *testing.T) {
	attr := WithTraceID("trace-12345")
	if attr.Key != FieldTraceID {
		t.Errorf("Key = %q, want %q", attr.Key, FieldTraceID)
	}
	if attr.Value.String() != "trace-12345" {
		t.Errorf("Value = %q, want %q", attr.Value.String(), "trace-12345")
	}
}

func TestWithEventID(t *testing.T) {
	attr := WithEventID("RECONCILE_APPLIED")
	if attr.Key != FieldEventID {
		t.Errorf("Key = %q, want %q", attr.Key, FieldEventID)
	}
	if attr.Value.String() != "RECONCILE_APPLIED" {
		t.Errorf("Value = %q, want %q", attr.Value.String(), "RECONCILE_APPLIED")
	}
}

func TestWithError(t *testing.T) {
	t.Run("With error", func(t *testing.T) {
		attr := WithError(errors.New("connection failed"))
		if attr.Key != FieldError {
			t.Errorf("Key = %q, want %q", attr.Key, FieldError)
		}
		if attr.Value.String() != "connection failed" {
			t.Errorf("Value = %q, want %q", attr.Value.String(), "connection failed")
		}
	})

	t.Run("With nil error", func(t *testing.T) {
		attr := WithError(nil)
		if attr.Value.String() != "" {
			t.Errorf("Value = %q, want empty string", attr.Value.String())
		}
	})
}

func TestWithVlanAndBatch(t *testing.T) {
	attr := WithVlanID(110)
	if attr.Key != FieldVlanID || attr.Value.Int64() != 110 {
		t.Errorf("WithVlanID = %v", attr)
	}
	attr = WithBatchID("b-1")
	if attr.Key != FieldBatchID || attr.Value.String() != "b-1" {
		t.Errorf("WithBatchID = %v", attr)
	}
}

func TestWithDecision(t *testing.T) {
	got := WithDecision("NoOp", "excluded")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if a := got[0].(slog.Attr); a.Key != FieldDecision || a.Value.String() != "NoOp" {
		t.Errorf("decision attr = %v", a)
	}
	if a := got[1].(slog.Attr); a.Key != FieldReason || a.Value.String() != "excluded" {
		t.Errorf("reason attr = %v", a)
	}
}

func TestCommonFields(t *testing.T) {
	t.Run("nil masker defaults to disabled", func(t *testing.T) {
		cf := NewCommonFields(nil)
		if got := cf.WithMAC("000018ff12dd").Value.String(); got != "000018ff12dd" {
			t.Errorf("WithMAC = %q", got)
		}
	})

	t.Run("ReconcileLogFields", func(t *testing.T) {
		cf := NewCommonFields(NewMasker(true))
		fields := cf.ReconcileLogFields("trace-1", "RECONCILE_START", "000018ff12dd", 110)
		if len(fields) != 4 {
			t.Fatalf("len = %d, want 4", len(fields))
		}
		if a := fields[2].(slog.Attr); a.Value.String() != "000018****dd" {
			t.Errorf("mac attr = %q", a.Value.String())
		}
		if a := fields[3].(slog.Attr); a.Value.Int64() != 110 {
			t.Errorf("vlan attr = %v", a.Value)
		}
	})
}
