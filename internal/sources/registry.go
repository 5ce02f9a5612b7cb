package sources

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

var ErrSourceNotFound = errors.New("source not found")

// Store is the persistence the registry needs.
type Store interface {
	SeedSources(ctx context.Context, sources []domain.Source) error
	UpsertSource(ctx context.Context, s *domain.Source) error
	ListSources(ctx context.Context) ([]domain.Source, error)
	GetSource(ctx context.Context, name string) (*domain.Source, error)
	SetSourceEnabled(ctx context.Context, name string, enabled bool) (bool, error)
	SetSourcePriority(ctx context.Context, name string, priority int) (bool, error)
}

// Registry joins stored source settings with the probes implemented in code
// and the capabilities the running configuration provides.
type Registry struct {
	store        Store
	probes       map[string]Probe
	capabilities map[string]bool
	mu           sync.RWMutex
}

func NewRegistry(store Store, capabilities map[string]bool) *Registry {
	if capabilities == nil {
		capabilities = map[string]bool{}
	}
	return &Registry{
		store:        store,
		probes:       make(map[string]Probe),
		capabilities: capabilities,
	}
}

// Register makes a probe available under its name. A later registration
// with the same name replaces the earlier one.
func (r *Registry) Register(probes ...Probe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range probes {
		r.probes[p.Name()] = p
	}
}

func (r *Registry) Probe(name string) (Probe, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.probes[name]
	return p, ok
}

// Seed stores the given definitions without touching rows that already
// exist. Overrides from a sources file are written through as upserts.
func (r *Registry) Seed(ctx context.Context, defaults []domain.Source, overrides []domain.Source) error {
	if err := r.store.SeedSources(ctx, defaults); err != nil {
		return err
	}
	for i := range overrides {
		if err := r.store.UpsertSource(ctx, &overrides[i]); err != nil {
			return err
		}
	}
	return nil
}

// HasCapability reports whether the running configuration provides c.
// An empty requirement is always met.
func (r *Registry) HasCapability(c string) bool {
	return c == "" || r.capabilities[c]
}

// Available reports whether s may be probed right now.
func (r *Registry) Available(s *domain.Source) bool {
	if s == nil || !s.Enabled || !r.HasCapability(s.RequiresCapability) {
		return false
	}
	_, ok := r.Probe(s.Name)
	return ok
}

func (r *Registry) List(ctx context.Context) ([]domain.Source, error) {
	return r.store.ListSources(ctx)
}

func (r *Registry) Get(ctx context.Context, name string) (*domain.Source, error) {
	s, err := r.store.GetSource(ctx, name)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSourceNotFound
	}
	return s, nil
}

// Candidates returns the sources that may be probed, ordered by static
// priority.
func (r *Registry) Candidates(ctx context.Context) ([]domain.Source, error) {
	all, err := r.store.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Source, 0, len(all))
	for i := range all {
		if r.Available(&all[i]) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (r *Registry) SetEnabled(ctx context.Context, name string, enabled bool) error {
	ok, err := r.store.SetSourceEnabled(ctx, name, enabled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSourceNotFound
	}
	return nil
}

func (r *Registry) SetPriority(ctx context.Context, name string, priority int) error {
	ok, err := r.store.SetSourcePriority(ctx, name, priority)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSourceNotFound
	}
	return nil
}
