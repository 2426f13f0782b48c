package payment

import (
	"fmt"
	"sort"
)

// Registry maps gateway ids to adapters. It is built once at process start and
// injected wherever adapters are resolved; there is no ambient global.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gws))}
	for _, gw := range gws {
		r.gateways[gw.ID()] = gw
	}
	return r
}

func (r *Registry) Get(id string) (Gateway, error) {
	gw, ok := r.gateways[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGateway, id)
	}
	return gw, nil
}

// IDs returns the registered gateway ids in stable order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.gateways))
	for id := range r.gateways {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
