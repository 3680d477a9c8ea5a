package radius

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/binary"
	"testing"

	"layeh.com/radius"
	"layeh.com/radius/rfc2869"
)

// newAccountingPacket はテスト用のAccounting-Requestを作成する
func newAccountingPacket(t *testing.T, secret []byte, statusType uint32) *radius.Packet {
	t.Helper()
	p := &radius.Packet{
		Code:       radius.CodeAccountingRequest,
		Identifier: 1,
		Secret:     secret,
	}
	status := make([]byte, 4)
	binary.BigEndian.PutUint32(status, statusType)
	p.Add(radius.Type(AttrTypeAcctStatusType), status)
	return p
}

// signAccounting は正しいRequest Authenticatorを設定する
func signAccounting(t *testing.T, p *radius.Packet, secret []byte) {
	t.Helper()
	raw, err := p.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	copy(raw[4:20], make([]byte, 16))
	h := md5.New()
	h.Write(raw)
	h.Write(secret)
	copy(p.Authenticator[:], h.Sum(nil))
}

// newStatusServerPacket はMessage-Authenticator付きのStatus-Serverを作成する
func newStatusServerPacket(t *testing.T, secret []byte) *radius.Packet {
	t.Helper()
	p := &radius.Packet{
		Code:       radius.CodeStatusServer,
		Identifier: 7,
		Secret:     secret,
	}
	p.Add(radius.Type(AttrTypeProxyState), []byte("ps-1"))
	_ = rfc2869.MessageAuthenticator_Set(p, make([]byte, 16))
	raw, err := p.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	h := hmac.New(md5.New, secret)
	h.Write(raw)
	_ = rfc2869.MessageAuthenticator_Set(p, h.Sum(nil))
	return p
}
