package radius

import (
	"layeh.com/radius"
)

// BuildAccountingResponse はAccounting-Responseを生成し、Proxy-Stateを順序どおりに返す。
// Response AuthenticatorはEncode時にライブラリが計算する。
func BuildAccountingResponse(request *radius.Packet, states [][]byte) *radius.Packet {
	resp := request.Response(radius.CodeAccountingResponse)
	for _, s := range states {
		resp.Add(radius.Type(AttrTypeProxyState), s)
	}
	return resp
}

// BuildStatusResponse はStatus-Server（RFC 5997）への応答を生成する。
// Message-Authenticatorが不正な場合はnilを返す（応答しない）。
func BuildStatusResponse(request *radius.Packet, secret []byte) *radius.Packet {
	if !VerifyMessageAuthenticator(request, secret) {
		return nil
	}
	resp := BuildAccountingResponse(request, proxyStates(request))
	SetMessageAuthenticator(resp, secret, request.Authenticator)
	return resp
}
