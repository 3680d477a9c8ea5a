package logging

import "log/slog"

// ログフィールド名の定数
const (
	FieldTraceID    = "trace_id"
	FieldEventID    = "event_id"
	FieldError      = "error"
	FieldSrcIP      = "src_ip"
	FieldLatencyMs  = "latency_ms"
	FieldHTTPStatus = "http_status"
	FieldMAC        = "mac"
	FieldVlanID     = "vlan_id"
	FieldBatchID    = "batch_id"
	FieldDecision   = "decision"
	FieldReason     = "reason"
)

// WithTraceID はトレースIDのslog.Attrを返す。
func WithTraceID(traceID string) slog.Attr {
	return slog.String(FieldTraceID, traceID)
}

// WithEventID はイベントIDのslog.Attrを返す。
func WithEventID(eventID string) slog.Attr {
	return slog.String(FieldEventID, eventID)
}

// WithError はエラーのslog.Attrを返す。
func WithError(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// WithSrcIP はソースIPアドレスのslog.Attrを返す。
func WithSrcIP(ip string) slog.Attr {
	return slog.String(FieldSrcIP, ip)
}

// WithLatency はレイテンシ（ミリ秒）のslog.Attrを返す。
func WithLatency(ms int64) slog.Attr {
	return slog.Int64(FieldLatencyMs, ms)
}

// WithHTTPStatus はHTTPステータスコードのslog.Attrを返す。
func WithHTTPStatus(status int) slog.Attr {
	return slog.Int(FieldHTTPStatus, status)
}

// WithVlanID はVLAN IDのslog.Attrを返す。
func WithVlanID(vlanID int) slog.Attr {
	return slog.Int(FieldVlanID, vlanID)
}

// WithBatchID はバッチIDのslog.Attrを返す。
func WithBatchID(batchID string) slog.Attr {
	return slog.String(FieldBatchID, batchID)
}

// WithDecision は判定種別と理由のslog.Attrを返す。
func WithDecision(kind, reason string) []any {
	return []any{
		slog.String(FieldDecision, kind),
		slog.String(FieldReason, reason),
	}
}

// CommonFields はマスキング設定を保持するログフィールド生成器。
type CommonFields struct {
	masker *Masker
}

// NewCommonFields は新しいCommonFieldsを生成する。
func NewCommonFields(masker *Masker) *CommonFields {
	if masker == nil {
		masker = NewMasker(false)
	}
	return &CommonFields{masker: masker}
}

// WithMAC はマスキングされたMACアドレスのslog.Attrを返す。
func (cf *CommonFields) WithMAC(mac string) slog.Attr {
	return slog.String(FieldMAC, cf.masker.MAC(mac))
}

// ReconcileLogFields は照合ログ用の共通フィールドを返す。
func (cf *CommonFields) ReconcileLogFields(traceID, eventID, mac string, vlanID int) []any {
	return []any{
		WithTraceID(traceID),
		WithEventID(eventID),
		cf.WithMAC(mac),
		WithVlanID(vlanID),
	}
}
