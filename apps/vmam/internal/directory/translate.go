package directory

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/go-ldap/ldap/v3"

	"github.com/oyaguma3/vmam/pkg/apperr"
)

// translateError はLDAP/ネットワークのエラーを*apperr.DirectoryErrorに変換する。
// 既にDirectoryErrorの場合はそのまま返す。
func translateError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.AsDirectoryError(err); ok {
		return err
	}
	return apperr.NewDirectoryError(classify(err), op, key, err)
}

// classify はエラーの種別を判定する。
func classify(err error) apperr.DirectoryErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperr.DirectoryTimeout
	case ldap.IsErrorAnyOf(err,
		ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInsufficientAccessRights,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultStrongAuthRequired,
		ldap.ErrorEmptyPassword):
		return apperr.DirectoryAuthFailed
	case ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject):
		return apperr.DirectoryNotFound
	case ldap.IsErrorAnyOf(err, ldap.LDAPResultEntryAlreadyExists, ldap.LDAPResultBusy):
		return apperr.DirectoryConflict
	case ldap.IsErrorAnyOf(err, ldap.LDAPResultTimeLimitExceeded, ldap.LDAPResultTimeout):
		return apperr.DirectoryTimeout
	case ldap.IsErrorAnyOf(err,
		ldap.ErrorNetwork,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultServerDown,
		ldap.LDAPResultConnectError):
		return apperr.DirectoryUnavailable
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return apperr.DirectoryTimeout
		}
		return apperr.DirectoryUnavailable
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return apperr.DirectoryUnavailable
	}
	// サーバが応答した上での拒否（スキーマ・制約違反等）は接続障害として扱わない
	var le *ldap.Error
	if errors.As(err, &le) {
		return apperr.DirectoryRejected
	}
	return apperr.DirectoryUnavailable
}

// isStale は共有接続を張り直すべきエラーかを判定する。
func isStale(conn ldap.Client, err error) bool {
	if conn.IsClosing() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return ldap.IsErrorAnyOf(err, ldap.ErrorNetwork, ldap.LDAPResultUnavailable, ldap.LDAPResultServerDown)
}
