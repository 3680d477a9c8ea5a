package discovery

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/oyaguma3/vmam/apps/vmam/internal/mac"
	"github.com/oyaguma3/vmam/pkg/logging"
	"github.com/oyaguma3/vmam/pkg/model"
)

// MultiSource は複数の取得元を統合する。
// 同じMACアドレスは先に現れたものを採用する。
type MultiSource struct {
	sources []Source
}

// NewMultiSource は新しいMultiSourceを生成する。
func NewMultiSource(sources ...Source) *MultiSource {
	return &MultiSource{sources: sources}
}

// Devices は各取得元の結果を統合して最大limit件を返す。
// 一部の取得元の失敗は警告にとどめ、全て失敗した場合のみエラーを返す。
func (m *MultiSource) Devices(ctx context.Context, limit int) ([]model.Device, error) {
	seen := make(map[string]struct{})
	var result []model.Device
	var errs []error

	for _, src := range m.sources {
		devices, err := src.Devices(ctx, limit)
		if err != nil {
			slog.Warn("discovery source failed",
				logging.WithEventID("DISCOVERY_SOURCE_ERR"),
				logging.WithError(err),
			)
			errs = append(errs, err)
			continue
		}
		for _, d := range devices {
			key := dedupeKey(d.MAC)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			result = append(result, d)
			if limit > 0 && len(result) >= limit {
				return result, nil
			}
		}
	}

	if len(errs) > 0 && len(errs) == len(m.sources) {
		return nil, errors.Join(errs...)
	}
	return result, nil
}

// dedupeKey は正規化できるMACは正規形、できないものは小文字の生値を返す。
func dedupeKey(raw string) string {
	if addr, err := mac.Parse(raw); err == nil {
		return addr.String()
	}
	return strings.ToLower(strings.TrimSpace(raw))
}
