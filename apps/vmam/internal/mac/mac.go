// Package mac はMACアドレスの解析・正規化・整形を提供する。
package mac

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oyaguma3/vmam/pkg/apperr"
)

// 受理する表記の正規表現
var (
	// NonePattern は区切りなし（000018ff12dd）
	NonePattern = regexp.MustCompile(`^[0-9A-Fa-f]{12}$`)

	// HyphenPattern はハイフン区切り（00-00-18-ff-12-dd）
	HyphenPattern = regexp.MustCompile(`^(?:[0-9A-Fa-f]{2}-){5}[0-9A-Fa-f]{2}$`)

	// ColonPattern はコロン区切り（00:00:18:ff:12:dd）
	ColonPattern = regexp.MustCompile(`^(?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

	// DotPattern はドット4桁区切り（0000.18ff.12dd）
	DotPattern = regexp.MustCompile(`^(?:[0-9A-Fa-f]{4}\.){2}[0-9A-Fa-f]{4}$`)
)

// 解析失敗理由
const (
	ReasonEmpty            = "empty"
	ReasonInvalidLength    = "invalid length"
	ReasonInvalidCharacter = "invalid character"
	ReasonInvalidFormat    = "invalid format"
)

// HexDigits は正規形の桁数
const HexDigits = 12

// Address は正規化済みMACアドレス（12桁小文字16進）。
// 比較演算子・mapキーとしてそのまま使える。
type Address struct {
	value string
}

// Parse は生のMACアドレス文字列を解析する。
// 区切りなし・ハイフン・コロン・ドット区切りのいずれも受理する。
func Parse(raw string) (Address, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Address{}, invalid(ReasonEmpty)
	}

	var b strings.Builder
	b.Grow(HexDigits)
	for _, r := range s {
		switch {
		case isHex(r):
			b.WriteRune(r)
		case r == '-' || r == ':' || r == '.':
		default:
			return Address{}, invalid(ReasonInvalidCharacter)
		}
	}

	digits := b.String()
	if len(digits) != HexDigits {
		return Address{}, invalid(ReasonInvalidLength)
	}

	if !NonePattern.MatchString(s) && !HyphenPattern.MatchString(s) &&
		!ColonPattern.MatchString(s) && !DotPattern.MatchString(s) {
		return Address{}, invalid(ReasonInvalidFormat)
	}

	return Address{value: strings.ToLower(digits)}, nil
}

// MustParse はParseに失敗した場合パニックする。テスト・定数用。
func MustParse(raw string) Address {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// String は正規形（区切りなし小文字）を返す。
func (a Address) String() string {
	return a.value
}

// IsZero は未初期化のAddressかどうかを返す。
func (a Address) IsZero() bool {
	return a.value == ""
}

// Format は指定スタイルで整形する。
func (a Address) Format(style Style) string {
	switch style {
	case StyleHyphen:
		return group(a.value, 2, "-")
	case StyleColon:
		return group(a.value, 2, ":")
	case StyleDot:
		return group(a.value, 4, ".")
	default:
		return a.value
	}
}

// group はsをsize桁ごとにsepで区切る
func group(s string, size int, sep string) string {
	if s == "" {
		return ""
	}
	parts := make([]string, 0, len(s)/size)
	for i := 0; i < len(s); i += size {
		parts = append(parts, s[i:i+size])
	}
	return strings.Join(parts, sep)
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func invalid(reason string) error {
	return apperr.NewValidationError("mac", reason)
}

// Style はMACアドレスの表記スタイル（mac_format）。
type Style string

// Style値
const (
	StyleNone   Style = "none"
	StyleHyphen Style = "hyphen"
	StyleColon  Style = "colon"
	StyleDot    Style = "dot"
)

// ParseStyle は設定値からStyleを得る。
// 旧設定テンプレートの綴り "hypen" もハイフンとして受理する。
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return StyleNone, nil
	case "hyphen", "hypen":
		return StyleHyphen, nil
	case "colon":
		return StyleColon, nil
	case "dot":
		return StyleDot, nil
	}
	return "", fmt.Errorf("unknown mac_format %q", s)
}
