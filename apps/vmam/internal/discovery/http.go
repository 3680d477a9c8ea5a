package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/pkg/model"
)

// deviceJSON はHTTP取得元が返す端末1件分の形式。
// activeが省略された場合はアクティブとして扱う。
type deviceJSON struct {
	MAC        string   `json:"mac"`
	VlanID     int      `json:"vlan_id"`
	Active     *bool    `json:"active"`
	LastSeen   int64    `json:"last_seen"`
	UserName   string   `json:"user_name"`
	Attributes []string `json:"attributes"`
}

// listResponseJSON は {"devices": [...]} 形式の応答。
type listResponseJSON struct {
	Devices []deviceJSON `json:"devices"`
}

// HTTPSource はDHCP/IPAM等のエクスポートをHTTPで取得する。
type HTTPSource struct {
	httpClient *resty.Client
	url        string
}

// NewHTTPSource は新しいHTTPSourceを生成する。
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		httpClient: resty.New().SetTimeout(config.DiscoveryRequestTimeout),
		url:        strings.TrimRight(url, "/"),
	}
}

// Devices は端末一覧を取得する。
// 応答は端末の配列、または {"devices": [...]} のいずれか。
func (s *HTTPSource) Devices(ctx context.Context, limit int) ([]model.Device, error) {
	req := s.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")
	if limit > 0 {
		req.SetQueryParam("limit", fmt.Sprintf("%d", limit))
	}

	resp, err := req.Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	raw, err := parseDevices(resp.Body())
	if err != nil {
		return nil, err
	}

	result := make([]model.Device, 0, len(raw))
	for _, r := range raw {
		if limit > 0 && len(result) >= limit {
			break
		}
		d := model.Device{
			MAC:        r.MAC,
			VlanID:     r.VlanID,
			Active:     r.Active == nil || *r.Active,
			LastSeen:   r.LastSeen,
			Source:     model.SourceHTTP,
			UserName:   r.UserName,
			Attributes: r.Attributes,
		}
		if d.UserName != "" {
			d.Attributes = append(d.Attributes, d.UserName)
		}
		result = append(result, d)
	}
	return result, nil
}

func parseDevices(body []byte) ([]deviceJSON, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var list []deviceJSON
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("%w: json unmarshal: %v", ErrInvalidResponse, err)
		}
		return list, nil
	}

	var wrapped listResponseJSON
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: json unmarshal: %v", ErrInvalidResponse, err)
	}
	return wrapped.Devices, nil
}
