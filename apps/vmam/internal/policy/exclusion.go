package policy

import (
	"fmt"
	"path"
	"strings"

	"github.com/oyaguma3/vmam/apps/vmam/internal/mac"
)

// ExclusionFilter はfilter_excludeに基づき、操作対象外のMACアドレス・ID名を判定する。
type ExclusionFilter struct {
	exact    map[mac.Address]struct{}
	patterns []string
}

// NewExclusionFilter はパターン一覧からExclusionFilterを生成する。
// MACアドレスとして解釈できるものは完全一致、それ以外はglob（* ? [...]）として扱う。
func NewExclusionFilter(patterns []string) (*ExclusionFilter, error) {
	f := &ExclusionFilter{exact: make(map[mac.Address]struct{})}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if addr, err := mac.Parse(p); err == nil {
			f.exact[addr] = struct{}{}
			continue
		}
		lp := strings.ToLower(p)
		if _, err := path.Match(lp, ""); err != nil {
			return nil, fmt.Errorf("invalid filter_exclude pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, lp)
	}
	return f, nil
}

// Excludes はMACアドレスまたはID名が除外対象かを返す。
// globは正規形と各区切りスタイルの表記、ID名のいずれかに一致すれば除外とする。
func (f *ExclusionFilter) Excludes(addr mac.Address, identityName string) bool {
	if f == nil {
		return false
	}
	if _, ok := f.exact[addr]; ok {
		return true
	}
	if len(f.patterns) == 0 {
		return false
	}

	candidates := []string{
		addr.String(),
		addr.Format(mac.StyleHyphen),
		addr.Format(mac.StyleColon),
		addr.Format(mac.StyleDot),
	}
	if identityName != "" {
		candidates = append(candidates, strings.ToLower(identityName))
	}

	for _, p := range f.patterns {
		for _, c := range candidates {
			if ok, _ := path.Match(p, c); ok {
				return true
			}
		}
	}
	return false
}

// Len は登録済みエントリ数を返す。
func (f *ExclusionFilter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.exact) + len(f.patterns)
}
