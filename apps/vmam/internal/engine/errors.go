package engine

import "errors"

// センチネルエラー
var (
	// ErrUnknownAction は未対応の操作が要求された場合のエラー
	ErrUnknownAction = errors.New("unknown action")

	// ErrVlanRequired はaddでVLAN IDが指定されていない場合のエラー
	ErrVlanRequired = errors.New("vlan id is required for add")
)
