package merchant

import (
	"fmt"
	"sort"
	"time"

	"github.com/pricegrid/pricegrid/engine"
	"github.com/pricegrid/pricegrid/models"
	"github.com/pricegrid/pricegrid/ratelimit"
)

// Registry holds one adapter per configured source. Built once at startup;
// read-only afterwards.
type Registry struct {
	adapters map[string]*Adapter
	sources  []Source
}

// NewRegistry builds adapters for every source, binding each to the engine
// its fetch mode names. rodEngine may be nil when no source needs rendering
// (a browser is expensive to launch for nothing); a source demanding it then
// fails construction rather than silently degrading to the HTTP engine.
func NewRegistry(sources []Source, httpEngine, rodEngine engine.Engine, limiter *ratelimit.Limiter, fetchTimeout time.Duration) (*Registry, error) {
	r := &Registry{
		adapters: make(map[string]*Adapter, len(sources)),
		sources:  sources,
	}

	for _, src := range sources {
		var eng engine.Engine
		switch src.FetchMode {
		case FetchModeBrowser:
			if rodEngine == nil {
				return nil, fmt.Errorf("source %s requires browser rendering but no browser engine is configured", src.Name)
			}
			eng = rodEngine
		case FetchModeHTTP, "":
			eng = httpEngine
		default:
			return nil, fmt.Errorf("source %s: unknown fetch mode %q", src.Name, src.FetchMode)
		}

		a, err := NewAdapter(src, eng, limiter, fetchTimeout)
		if err != nil {
			return nil, err
		}
		r.adapters[src.Name] = a
	}
	return r, nil
}

// Get returns the adapter for a merchant name, or nil.
func (r *Registry) Get(name string) *Adapter {
	return r.adapters[name]
}

// Select resolves the requested merchant names into enabled adapters.
// An empty request means all enabled sources. Unknown or disabled names are
// silently dropped; the per-merchant status metadata makes the effective
// set visible to the caller.
func (r *Registry) Select(names []string) []*Adapter {
	var out []*Adapter
	if len(names) == 0 {
		for _, src := range r.sources {
			if src.Enabled {
				out = append(out, r.adapters[src.Name])
			}
		}
	} else {
		for _, name := range names {
			if a, ok := r.adapters[name]; ok && a.source.Enabled {
				out = append(out, a)
			}
		}
	}
	// Deterministic fan-out order keeps logs and tests reproducible.
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Infos returns the API-facing description of every configured source,
// sorted by name.
func (r *Registry) Infos() []models.MerchantInfo {
	infos := make([]models.MerchantInfo, 0, len(r.sources))
	for _, src := range r.sources {
		infos = append(infos, src.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
