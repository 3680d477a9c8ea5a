// Package httputil はステータスAPIのRFC 7807エラーレスポンスを提供する。
package httputil

import (
	"net/http"
)

// ContentType はRFC 7807で定義されたContent-Typeヘッダー値。
const ContentType = "application/problem+json"

// vmam固有のproblem type
const (
	TypeDirectoryUnreachable = "urn:vmam:problem:directory-unreachable"
	TypeReportNotFound       = "urn:vmam:problem:report-not-found"
	TypeStoreUnavailable     = "urn:vmam:problem:store-unavailable"
)

// ProblemDetail はRFC 7807準拠のエラーレスポンス構造体。
// trace_idは拡張メンバー。
type ProblemDetail struct {
	Type    string `json:"type"`               // エラータイプのURI
	Title   string `json:"title"`              // エラータイトル
	Status  int    `json:"status"`             // HTTPステータスコード
	Detail  string `json:"detail,omitempty"`   // 詳細説明
	TraceID string `json:"trace_id,omitempty"` // リクエストのトレースID
}

// NewProblemDetail は新しいProblemDetailを生成する。typeはabout:blank。
func NewProblemDetail(status int, detail string) *ProblemDetail {
	return &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// WithType はproblem typeを設定する。
func (p *ProblemDetail) WithType(uri string) *ProblemDetail {
	p.Type = uri
	return p
}

// NotFound は404 Not Foundのエラーレスポンスを生成する。
func NotFound(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusNotFound, detail)
}

// InternalServerError は500 Internal Server Errorのエラーレスポンスを生成する。
func InternalServerError(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusInternalServerError, detail)
}

// ServiceUnavailable は503 Service Unavailableのエラーレスポンスを生成する。
func ServiceUnavailable(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusServiceUnavailable, detail)
}
