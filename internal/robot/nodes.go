// SPDX-License-Identifier: MIT

package robot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/teletable/backend/internal/cache"
	"github.com/teletable/backend/internal/log"
)

const nodesCacheKey = "robot:nodes"

// NodesResponse is the robot's /nodes payload and our own /nodes reply.
type NodesResponse struct {
	Nodes []string `json:"nodes"`
}

// NodeFetcher resolves the robot's node list through a two-tier cache
// (opaque KV first, then the store's in-memory slot) before falling back
// to an HTTP GET against the robot. Cache failures are non-fatal and
// degrade to a direct fetch.
type NodeFetcher struct {
	store  *Store
	kv     cache.Cache
	client *http.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewNodeFetcher builds a fetcher. client must carry the shared outbound
// timeout; ttl bounds the KV tier entry.
func NewNodeFetcher(store *Store, kv cache.Cache, client *http.Client, ttl time.Duration) *NodeFetcher {
	return &NodeFetcher{
		store:  store,
		kv:     kv,
		client: client,
		ttl:    ttl,
		logger: log.WithComponent("nodes"),
	}
}

// GetNodes returns the node list, consulting KV, then memory, then the
// robot. ErrRobotUnavailable is returned when no robot URL is registered
// or the fetch fails; callers translate that into a 503 with an empty
// list.
func (f *NodeFetcher) GetNodes(ctx context.Context) ([]string, error) {
	if raw, ok := f.kv.Get(ctx, nodesCacheKey); ok {
		var nodes []string
		if err := json.Unmarshal(raw, &nodes); err == nil {
			return nodes, nil
		}
		f.logger.Warn().Str("key", nodesCacheKey).Msg("discarding undecodable KV node entry")
	}

	if nodes, ok := f.store.CachedNodes(); ok {
		return nodes, nil
	}

	url := f.store.RobotURL()
	if url == "" {
		return nil, ErrRobotUnavailable
	}

	nodes, err := f.fetch(ctx, url)
	if err != nil {
		f.logger.Error().Err(err).Str(log.FieldRobotURL, url).Msg("failed to fetch nodes from robot")
		return nil, ErrRobotUnavailable
	}

	// Write-through both tiers. The memory tier has no TTL; discovery of a
	// new robot URL does not invalidate it because node sets are static
	// per deployment.
	f.store.SetCachedNodes(nodes)
	if raw, err := json.Marshal(nodes); err == nil {
		f.kv.Set(ctx, nodesCacheKey, raw, f.ttl)
	}
	return nodes, nil
}

func (f *NodeFetcher) fetch(ctx context.Context, baseURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/nodes", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get nodes: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("robot returned status %d", resp.StatusCode)
	}
	var decoded NodesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}
	return decoded.Nodes, nil
}
