package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/relaycore/relaycore/internal/tlsutil"
	"github.com/relaycore/relaycore/relay/network"
	"github.com/relaycore/relaycore/types"
)

// =============================================================================
// 🪞 Mirror REST 客户端
// =============================================================================

// mirrorClient 通过 Mirror REST 接口读取记录。付费查询需要共识节点 SDK，这里不支持。
type mirrorClient struct {
	baseURL  string
	operator *network.Operator

	mu   sync.RWMutex
	http *http.Client
}

var _ network.Client = (*mirrorClient)(nil)

// newMirrorClient 实现 network.Factory
func newMirrorClient(cfg network.Config, operator *network.Operator) (network.Client, error) {
	if cfg.MirrorURL == "" {
		return nil, fmt.Errorf("network.mirror_url is required")
	}
	u, err := url.Parse(cfg.MirrorURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid mirror url %q", cfg.MirrorURL)
	}
	return &mirrorClient{
		baseURL:  strings.TrimRight(cfg.MirrorURL, "/"),
		operator: operator,
		http:     tlsutil.HTTPClient(10 * time.Second),
	}, nil
}

func (c *mirrorClient) ExecuteQuery(_ context.Context, q network.Query, _ int64) (*network.Response, error) {
	return nil, types.NewError(types.ErrUpstreamError, "paid queries require a consensus node client").
		WithMethod(q.Kind)
}

func (c *mirrorClient) GetRecord(ctx context.Context, kind, id string) (*network.Record, error) {
	endpoint := fmt.Sprintf("%s/api/v1/%s/%s", c.baseURL, url.PathEscape(kind), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	client := c.http
	c.mu.RUnlock()

	resp, err := client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "mirror request failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "read mirror response").WithCause(err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, network.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, types.NewError(types.ErrUpstreamError, fmt.Sprintf("mirror returned status %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500)
	}

	var rec network.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "decode mirror record").WithCause(err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	rec.Raw = body
	return &rec, nil
}

func (c *mirrorClient) SetRequestTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.http = tlsutil.HTTPClient(d)
}
