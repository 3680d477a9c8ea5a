package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"layeh.com/radius"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/apps/vmam/internal/mac"
	radiuspkg "github.com/oyaguma3/vmam/apps/vmam/internal/radius"
	"github.com/oyaguma3/vmam/pkg/logging"
	"github.com/oyaguma3/vmam/pkg/model"
)

// Handler はRADIUSリクエストを処理するハンドラ。
type Handler struct {
	devices DeviceRecorder
	fields  *logging.CommonFields
	now     func() time.Time
}

// NewHandler は新しいHandlerを生成する
func NewHandler(devices DeviceRecorder, fields *logging.CommonFields) *Handler {
	if fields == nil {
		fields = logging.NewCommonFields(nil)
	}
	return &Handler{devices: devices, fields: fields, now: time.Now}
}

// ServeRADIUS はRADIUSリクエストを処理する
func (h *Handler) ServeRADIUS(w radius.ResponseWriter, r *radius.Request) {
	traceID := uuid.New().String()
	srcIP := extractIP(r.RemoteAddr)

	switch r.Code {
	case radius.CodeAccountingRequest:
		h.handleAccountingRequest(w, r, traceID, srcIP)

	case radius.CodeStatusServer:
		h.handleStatusServer(w, r, traceID, srcIP)

	default:
		slog.Warn("未対応のRADIUS Code",
			logging.WithEventID("RADIUS_UNKNOWN_CODE"),
			logging.WithTraceID(traceID),
			logging.WithSrcIP(srcIP),
			"code", r.Code,
		)
	}
}

// handleAccountingRequest はAccounting-Requestを処理する
func (h *Handler) handleAccountingRequest(w radius.ResponseWriter, r *radius.Request, traceID, srcIP string) {
	// 1. Request Authenticator検証
	if !radiuspkg.VerifyAccountingAuthenticator(r.Packet, r.Secret) {
		slog.Warn("Authenticator検証失敗",
			logging.WithEventID("RADIUS_AUTH_ERR"),
			logging.WithTraceID(traceID),
			logging.WithSrcIP(srcIP),
		)
		return // パケット破棄
	}

	// 2. 属性抽出
	attrs, err := radiuspkg.ExtractAccountingAttributes(r.Packet)
	if err != nil {
		slog.Warn("属性抽出失敗",
			logging.WithEventID("RADIUS_PARSE_ERR"),
			logging.WithTraceID(traceID),
			logging.WithSrcIP(srcIP),
			logging.FieldReason, err.Error(),
		)
		return // パケット破棄
	}

	// 3. 端末レジストリ更新。失敗してもAccounting-Responseは返す
	if attrs.IsSession() {
		ctx, cancel := context.WithTimeout(r.Context(), config.AcctHandlerTimeout)
		h.record(ctx, attrs, srcIP, traceID)
		cancel()
	}

	// 4. Accounting-Response送信
	response := radiuspkg.BuildAccountingResponse(r.Packet, attrs.ProxyStates)
	if err := w.Write(response); err != nil {
		slog.Error("RADIUS応答送信失敗",
			logging.WithEventID("PKT_SEND_ERR"),
			logging.WithTraceID(traceID),
			logging.WithError(err),
		)
	}
}

// record はStart/InterimならアクティブとしてUpsert、Stopなら非アクティブにする。
func (h *Handler) record(ctx context.Context, attrs *radiuspkg.AccountingAttributes, srcIP, traceID string) {
	addr, ok := stationMAC(attrs)
	if !ok {
		slog.Warn("端末MACアドレスを解釈できない",
			logging.WithEventID("RADIUS_PARSE_ERR"),
			logging.WithTraceID(traceID),
			logging.WithSrcIP(srcIP),
			"calling_station_id", attrs.CallingStationID,
		)
		return
	}

	now := h.now()
	var err error
	if attrs.AcctStatusType == radiuspkg.AcctStatusTypeStop {
		err = h.devices.MarkInactive(ctx, addr.String(), now)
	} else {
		d := model.NewDevice(addr.String(), attrs.VlanID, model.SourceAccounting, now)
		d.NasIP = attrs.NasIPAddress
		if d.NasIP == "" {
			d.NasIP = srcIP
		}
		d.UserName = attrs.UserName
		err = h.devices.Upsert(ctx, d)
	}

	if err != nil {
		slog.Error("端末レジストリ更新失敗",
			logging.WithEventID("DEVICE_RECORD_ERR"),
			logging.WithTraceID(traceID),
			h.fields.WithMAC(addr.String()),
			logging.WithError(err),
		)
		return
	}
	slog.Debug("端末レジストリ更新",
		logging.WithEventID("DEVICE_RECORD"),
		logging.WithTraceID(traceID),
		h.fields.WithMAC(addr.String()),
		logging.WithVlanID(attrs.VlanID),
		"acct_status_type", attrs.AcctStatusType,
	)
}

// stationMAC はCalling-Station-Id、無ければUser-NameからMACアドレスを得る。
func stationMAC(attrs *radiuspkg.AccountingAttributes) (mac.Address, bool) {
	for _, raw := range []string{attrs.CallingStationID, attrs.UserName} {
		if raw == "" {
			continue
		}
		if addr, err := mac.Parse(raw); err == nil {
			return addr, true
		}
	}
	return mac.Address{}, false
}

// handleStatusServer はStatus-Serverリクエストに応答する
func (h *Handler) handleStatusServer(w radius.ResponseWriter, r *radius.Request, traceID, srcIP string) {
	resp := radiuspkg.BuildStatusResponse(r.Packet, r.Secret)
	if resp == nil {
		slog.Warn("Status-Server: Message-Authenticator検証失敗",
			logging.WithEventID("RADIUS_AUTH_ERR"),
			logging.WithTraceID(traceID),
			logging.WithSrcIP(srcIP),
		)
		return
	}
	if err := w.Write(resp); err != nil {
		slog.Error("Status-Server応答送信失敗",
			logging.WithEventID("PKT_SEND_ERR"),
			logging.WithTraceID(traceID),
			logging.WithError(err),
		)
	}
}
