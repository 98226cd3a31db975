package reconciler

import (
	"context"

	"github.com/kestrelhq/driveconnect/internal/utils"
)

// ResolveTitles batch-resolves node titles from the local mirror only; no
// remote call is ever made. Unknown ids are absent from the result map.
func (r *Reconciler) ResolveTitles(ctx context.Context, connectorID string, ids []string) (map[string]string, error) {
	if _, err := r.requireConnector(ctx, connectorID); err != nil {
		return nil, err
	}
	return r.db.ResolveNames(ctx, connectorID, ids)
}

// ChainCache memoizes parent chains for one logical operation. It is owned
// by the caller and discarded at the end of the operation; it must never
// outlive it or be shared across operations.
type ChainCache struct {
	chains map[string][]string
}

// NewChainCache creates an empty correlation-scoped cache
func NewChainCache() *ChainCache {
	return &ChainCache{chains: make(map[string][]string)}
}

// ResolveParentChain walks parent pointers in the local mirror from nodeID
// up to a root, returning the chain starting with nodeID. Repeated calls
// with the same cache reuse previously computed suffixes. A revisited node
// fails with CYCLE_DETECTED; mirror invariants make this unreachable, but
// the walk refuses to loop forever if they are violated.
func (r *Reconciler) ResolveParentChain(ctx context.Context, connectorID, nodeID string, cache *ChainCache) ([]string, error) {
	if _, err := r.requireConnector(ctx, connectorID); err != nil {
		return nil, err
	}
	if cache == nil {
		cache = NewChainCache()
	}

	var chain []string
	seen := make(map[string]bool)
	current := nodeID

	for current != "" {
		if seen[current] {
			return nil, utils.NewAppError(utils.NewServiceError(utils.ErrCodeCycleDetected,
				"parent chain revisits a node").
				WithContext("connectorId", connectorID).
				WithContext("nodeId", current).
				Build())
		}
		seen[current] = true

		if cached, ok := cache.chains[current]; ok {
			chain = append(chain, cached...)
			break
		}

		chain = append(chain, current)

		file, err := r.db.GetFile(ctx, connectorID, current)
		if err != nil {
			return nil, err
		}
		if file == nil {
			// Selected roots and unmirrored ids terminate the chain.
			break
		}
		current = file.ParentID
	}

	// Memoize every suffix so later walks through shared ancestors are
	// answered without store reads.
	for i := range chain {
		if _, ok := cache.chains[chain[i]]; !ok {
			cache.chains[chain[i]] = chain[i:]
		}
	}

	return chain, nil
}
