// Package apperr は共通エラー定義を提供する。
package apperr

import "errors"

// 設定関連エラー（ConfigError.Reasonと対応）
var (
	// ErrConfigFileNotFound は設定ファイルが存在しない場合のエラー
	ErrConfigFileNotFound = errors.New("configuration file not found")
	// ErrConfigParse は設定ファイルのパース失敗エラー
	ErrConfigParse = errors.New("configuration parse error")
	// ErrMissingSection は必須セクション欠落エラー
	ErrMissingSection = errors.New("missing configuration section")
	// ErrUnexpectedSection は未定義セクション検出エラー
	ErrUnexpectedSection = errors.New("unexpected configuration section")
	// ErrMissingField は必須フィールド欠落エラー
	ErrMissingField = errors.New("missing configuration field")
	// ErrInvalidValue は不正な設定値エラー
	ErrInvalidValue = errors.New("invalid configuration value")
	// ErrMissingVlanGroupMapping はuser_match_idに対応するvlan_group_idが無い場合のエラー
	ErrMissingVlanGroupMapping = errors.New("missing vlan group mapping")
)

// ポリシー関連エラー
var (
	// ErrUnknownVlan は未定義VLAN IDエラー
	ErrUnknownVlan = errors.New("unknown vlan")
)

// 競合関連エラー（ConflictError.Reasonと対応）
var (
	// ErrExistingDifferentVlan は既存IDが別VLANに割り当て済みの場合のエラー
	ErrExistingDifferentVlan = errors.New("identity bound to a different vlan")
	// ErrNotSolelyManaged は既存IDが管理外グループにも所属している場合のエラー
	ErrNotSolelyManaged = errors.New("identity is not solely managed")
	// ErrIdentityDisabled は既存IDが無効化済みの場合のエラー
	ErrIdentityDisabled = errors.New("identity is disabled")
)

// ディレクトリ関連エラー（DirectoryError.Kindと対応）
var (
	// ErrDirectoryTimeout はディレクトリ操作タイムアウトエラー
	ErrDirectoryTimeout = errors.New("directory timeout")
	// ErrDirectoryAuthFailed はバインド認証失敗エラー
	ErrDirectoryAuthFailed = errors.New("directory authentication failed")
	// ErrDirectoryNotFound は対象オブジェクト不在エラー
	ErrDirectoryNotFound = errors.New("directory object not found")
	// ErrDirectoryConflict は同時更新競合エラー
	ErrDirectoryConflict = errors.New("directory write conflict")
	// ErrDirectoryRejected はスキーマ・制約違反による操作拒否エラー
	ErrDirectoryRejected = errors.New("directory rejected operation")
	// ErrDirectoryUnavailable はディレクトリ利用不可エラー
	ErrDirectoryUnavailable = errors.New("directory unavailable")
)

// インフラ関連エラー
var (
	// ErrValkeyConnection はValkey接続エラー
	ErrValkeyConnection = errors.New("valkey connection error")
	// ErrValkeyCommand はValkeyコマンド実行エラー
	ErrValkeyCommand = errors.New("valkey command error")
)

// バリデーション関連エラー
var (
	// ErrInvalidMAC は不正なMACアドレス形式エラー
	ErrInvalidMAC = errors.New("invalid mac-address")
)
