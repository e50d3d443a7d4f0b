package adapter

import (
	"fmt"
	"strings"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

// Factory builds an adapter bound to one indexer's configuration.
type Factory func(cfg types.IndexerConfig) Adapter

type registration struct {
	key     string
	domains []string
	factory Factory
}

// Registry resolves indexer configurations to provider adapters. Adapters are
// registered explicitly at construction; there is no import-time registration.
type Registry struct {
	entries []registration
}

// NewRegistry returns a registry with the built-in providers registered.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register("torznab", nil, func(cfg types.IndexerConfig) Adapter {
		return NewTorznab(cfg)
	})
	r.Register("myanonamouse", []string{"myanonamouse.net"}, func(cfg types.IndexerConfig) Adapter {
		return NewMyAnonamouse(cfg)
	})
	r.Register("audiobookbay", []string{"audiobookbay.lu", "audiobookbay.is", "audiobookbay.se", "audiobookbay.fi"}, func(cfg types.IndexerConfig) Adapter {
		return NewAudiobookBay(cfg)
	})
	r.Register("generic", nil, func(cfg types.IndexerConfig) Adapter {
		return NewGenericJSON(cfg)
	})
	return r
}

// Register adds a provider. Later registrations with the same key replace
// earlier ones.
func (r *Registry) Register(key string, domains []string, factory Factory) {
	for i := range r.entries {
		if r.entries[i].key == key {
			r.entries[i] = registration{key: key, domains: domains, factory: factory}
			return
		}
	}
	r.entries = append(r.entries, registration{key: key, domains: domains, factory: factory})
}

// Resolve picks the adapter for a config. Resolution order: explicit
// provider_key pin, then indexer type, then base-URL domain suffix, then the
// generic JSON fallback for direct indexers.
func (r *Registry) Resolve(cfg types.IndexerConfig) (Adapter, error) {
	if cfg.ProviderKey != "" {
		for _, e := range r.entries {
			if e.key == cfg.ProviderKey {
				return e.factory(cfg), nil
			}
		}
		return nil, fmt.Errorf("unknown provider key %q", cfg.ProviderKey)
	}
	if cfg.Type == types.IndexerTypeTorznab {
		return NewTorznab(cfg), nil
	}
	host := strings.ToLower(cfg.Host())
	if host != "" {
		for _, e := range r.entries {
			for _, d := range e.domains {
				if host == d || strings.HasSuffix(host, "."+d) {
					return e.factory(cfg), nil
				}
			}
		}
	}
	return NewGenericJSON(cfg), nil
}

// Keys lists the registered provider keys in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		keys = append(keys, e.key)
	}
	return keys
}
