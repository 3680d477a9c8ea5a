package apperr

import (
	"errors"
	"fmt"
)

// ValidationError はバリデーションエラーを表す。
type ValidationError struct {
	Field   string // エラーが発生したフィールド名
	Message string // エラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field=%s, message=%s", e.Field, e.Message)
}

// Is はフィールドがmacの場合ErrInvalidMACと一致する。
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidMAC && e.Field == "mac"
}

// NewValidationError はValidationErrorを生成する。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ConfigReason は設定エラーの種別。
type ConfigReason string

// ConfigReason値
const (
	ConfigFileNotFound            ConfigReason = "FileNotFound"
	ConfigParse                   ConfigReason = "Parse"
	ConfigMissingSection          ConfigReason = "MissingSection"
	ConfigUnexpectedSection       ConfigReason = "UnexpectedSection"
	ConfigMissingField            ConfigReason = "MissingField"
	ConfigInvalidValue            ConfigReason = "InvalidValue"
	ConfigMissingVlanGroupMapping ConfigReason = "MissingVlanGroupMapping"
)

var configSentinels = map[ConfigReason]error{
	ConfigFileNotFound:            ErrConfigFileNotFound,
	ConfigParse:                   ErrConfigParse,
	ConfigMissingSection:          ErrMissingSection,
	ConfigUnexpectedSection:       ErrUnexpectedSection,
	ConfigMissingField:            ErrMissingField,
	ConfigInvalidValue:            ErrInvalidValue,
	ConfigMissingVlanGroupMapping: ErrMissingVlanGroupMapping,
}

// ConfigError は設定ファイルの不備を表す。起動時に致命的。
type ConfigError struct {
	Reason ConfigReason // 違反種別
	Field  string       // 対象フィールド（LDAP.servers等）
	Detail string       // 詳細
	Cause  error        // 根本原因（パースエラー等）
}

// Error はerrorインターフェースを実装する。
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config error: reason=%s", e.Reason)
	if e.Field != "" {
		msg += ", field=" + e.Field
	}
	if e.Detail != "" {
		msg += ", detail=" + e.Detail
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(", cause=%v", e.Cause)
	}
	return msg
}

// Unwrap は根本原因を返す。
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is はReasonに対応するセンチネルと一致する。
func (e *ConfigError) Is(target error) bool {
	return configSentinels[e.Reason] == target
}

// NewConfigError はConfigErrorを生成する。
func NewConfigError(reason ConfigReason, field, detail string) *ConfigError {
	return &ConfigError{
		Reason: reason,
		Field:  field,
		Detail: detail,
	}
}

// PolicyError はポリシー解決の失敗を表す。対象MACのみ失敗扱い。
type PolicyError struct {
	VlanID int // 解決できなかったVLAN ID
}

// Error はerrorインターフェースを実装する。
func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy error: reason=UnknownVlan, vlan_id=%d", e.VlanID)
}

// Is はErrUnknownVlanと一致する。
func (e *PolicyError) Is(target error) bool {
	return target == ErrUnknownVlan
}

// NewPolicyError はPolicyErrorを生成する。
func NewPolicyError(vlanID int) *PolicyError {
	return &PolicyError{VlanID: vlanID}
}

// ConflictReason は競合エラーの種別。
type ConflictReason string

// ConflictReason値
const (
	ConflictExistingDifferentVlan ConflictReason = "ExistingDifferentVlan"
	ConflictNotSolelyManaged      ConflictReason = "NotSolelyManaged"
	ConflictIdentityDisabled      ConflictReason = "IdentityDisabled"
)

// ConflictError は既存状態と要求が食い違い、forceが無い場合のエラー。
// このエラーが返る場合、ディレクトリへの変更は行われていない。
type ConflictError struct {
	Reason ConflictReason
	MAC    string
	Detail string
}

// Error はerrorインターフェースを実装する。
func (e *ConflictError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("conflict error: reason=%s, mac=%s, detail=%s", e.Reason, e.MAC, e.Detail)
	}
	return fmt.Sprintf("conflict error: reason=%s, mac=%s", e.Reason, e.MAC)
}

// Is はReasonに対応するセンチネルと一致する。
func (e *ConflictError) Is(target error) bool {
	switch e.Reason {
	case ConflictExistingDifferentVlan:
		return target == ErrExistingDifferentVlan
	case ConflictNotSolelyManaged:
		return target == ErrNotSolelyManaged
	case ConflictIdentityDisabled:
		return target == ErrIdentityDisabled
	}
	return false
}

// NewConflictError はConflictErrorを生成する。
func NewConflictError(reason ConflictReason, mac, detail string) *ConflictError {
	return &ConflictError{
		Reason: reason,
		MAC:    mac,
		Detail: detail,
	}
}

// DirectoryErrorKind はディレクトリエラーの種別。
type DirectoryErrorKind string

// DirectoryErrorKind値
const (
	DirectoryTimeout     DirectoryErrorKind = "Timeout"
	DirectoryAuthFailed  DirectoryErrorKind = "AuthFailed"
	DirectoryNotFound    DirectoryErrorKind = "NotFound"
	DirectoryConflict    DirectoryErrorKind = "Conflict"
	DirectoryRejected    DirectoryErrorKind = "Rejected"
	DirectoryUnavailable DirectoryErrorKind = "Unavailable"
)

var directorySentinels = map[DirectoryErrorKind]error{
	DirectoryTimeout:     ErrDirectoryTimeout,
	DirectoryAuthFailed:  ErrDirectoryAuthFailed,
	DirectoryNotFound:    ErrDirectoryNotFound,
	DirectoryConflict:    ErrDirectoryConflict,
	DirectoryRejected:    ErrDirectoryRejected,
	DirectoryUnavailable: ErrDirectoryUnavailable,
}

// DirectoryError はディレクトリサービスとの操作エラーを表す。
type DirectoryError struct {
	Kind  DirectoryErrorKind // エラー種別
	Op    string             // 操作名（search, add, modify, delete等）
	Key   string             // 操作対象のID
	Cause error              // 根本原因
}

// Error はerrorインターフェースを実装する。
func (e *DirectoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("directory error: kind=%s, op=%s, key=%s, cause=%v",
			e.Kind, e.Op, e.Key, e.Cause)
	}
	return fmt.Sprintf("directory error: kind=%s, op=%s, key=%s", e.Kind, e.Op, e.Key)
}

// Unwrap は根本原因を返す。
func (e *DirectoryError) Unwrap() error {
	return e.Cause
}

// Is はKindに対応するセンチネルと一致する。
func (e *DirectoryError) Is(target error) bool {
	return directorySentinels[e.Kind] == target
}

// NewDirectoryError はDirectoryErrorを生成する。
func NewDirectoryError(kind DirectoryErrorKind, op, key string, cause error) *DirectoryError {
	return &DirectoryError{
		Kind:  kind,
		Op:    op,
		Key:   key,
		Cause: cause,
	}
}

// ValkeyError はValkeyとの操作エラーを表す。
type ValkeyError struct {
	Operation string // 操作名（GET, SET, DEL等）
	Key       string // 操作対象のキー
	Cause     error  // 根本原因
}

// Error はerrorインターフェースを実装する。
func (e *ValkeyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("valkey error: operation=%s, key=%s, cause=%v",
			e.Operation, e.Key, e.Cause)
	}
	return fmt.Sprintf("valkey error: operation=%s, key=%s", e.Operation, e.Key)
}

// Unwrap は根本原因を返す。
func (e *ValkeyError) Unwrap() error {
	return e.Cause
}

// NewValkeyError はValkeyErrorを生成する。
func NewValkeyError(operation, key string, cause error) *ValkeyError {
	return &ValkeyError{
		Operation: operation,
		Key:       key,
		Cause:     cause,
	}
}

// AsDirectoryError はerrからDirectoryErrorを取り出す。
func AsDirectoryError(err error) (*DirectoryError, bool) {
	var de *DirectoryError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsDirectoryKind はerrがkindのDirectoryErrorを含むかを判定する。
func IsDirectoryKind(err error, kind DirectoryErrorKind) bool {
	de, ok := AsDirectoryError(err)
	return ok && de.Kind == kind
}
