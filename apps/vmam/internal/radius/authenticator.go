package radius

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/subtle"

	"layeh.com/radius"
	"layeh.com/radius/rfc2869"
)

// VerifyAccountingAuthenticator はAccounting-RequestのRequest Authenticatorを検証する（RFC 2866 3章）。
// MD5(Code + ID + Length + 16バイトのゼロ + Attributes + Secret) と一致すれば正当。
func VerifyAccountingAuthenticator(packet *radius.Packet, secret []byte) bool {
	raw, err := packet.MarshalBinary()
	if err != nil || len(raw) < 20 {
		return false
	}

	got := make([]byte, 16)
	copy(got, raw[4:20])
	clear(raw[4:20])

	sum := md5.Sum(append(raw, secret...))
	return subtle.ConstantTimeCompare(got, sum[:]) == 1
}

// VerifyMessageAuthenticator はMessage-Authenticator属性（RFC 3579 3.2）を検証する。
// 属性が無い場合はfalse。検証後もパケットの属性値は元のまま。
func VerifyMessageAuthenticator(packet *radius.Packet, secret []byte) bool {
	orig, err := rfc2869.MessageAuthenticator_Lookup(packet)
	if err != nil || len(orig) != 16 {
		return false
	}
	defer rfc2869.MessageAuthenticator_Set(packet, orig)

	expected, ok := messageAuthenticator(packet, secret)
	return ok && hmac.Equal(expected, orig)
}

// SetMessageAuthenticator は応答パケットにMessage-Authenticator属性を設定する。
// 応答の計算にはRequest Authenticatorを使う。
func SetMessageAuthenticator(packet *radius.Packet, secret []byte, requestAuth [16]byte) {
	saved := packet.Authenticator
	packet.Authenticator = requestAuth
	sum, ok := messageAuthenticator(packet, secret)
	packet.Authenticator = saved
	if ok {
		_ = rfc2869.MessageAuthenticator_Set(packet, sum)
	}
}

// messageAuthenticator は属性値をゼロにした状態のHMAC-MD5を計算する。
func messageAuthenticator(packet *radius.Packet, secret []byte) ([]byte, bool) {
	_ = rfc2869.MessageAuthenticator_Set(packet, make([]byte, 16))
	raw, err := packet.MarshalBinary()
	if err != nil {
		return nil, false
	}
	h := hmac.New(md5.New, secret)
	h.Write(raw)
	return h.Sum(nil), true
}
