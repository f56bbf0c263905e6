package seeds

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrSeedExists      = errors.New("seed already exists")
	ErrSeedNil         = errors.New("seed is nil")
	ErrInvalidMetadata = errors.New("invalid seed metadata")
	ErrNoOperations    = errors.New("seed exposes no operations")
)

// Registry stores seeds by stable identifier.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Seed
}

// SeedInfo pairs metadata with the operation catalog for listings.
type SeedInfo struct {
	SeedMetadata
	Operations []OperationSpec `json:"operations"`
}

// NewRegistry creates an empty seed registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Seed)}
}

// ValidateMetadata checks required metadata fields and id format.
func ValidateMetadata(meta SeedMetadata) error {
	id := strings.TrimSpace(meta.ID)
	name := strings.TrimSpace(meta.Name)
	desc := strings.TrimSpace(meta.Description)
	if id == "" || name == "" || desc == "" {
		return fmt.Errorf("%w: id, name, and description are required", ErrInvalidMetadata)
	}
	if !IsValidID(id) {
		return fmt.Errorf("%w: invalid id format %q", ErrInvalidMetadata, id)
	}
	return nil
}

// Register adds a seed to the registry.
func (r *Registry) Register(seed Seed) error {
	if seed == nil {
		return ErrSeedNil
	}

	meta := seed.Metadata()
	if err := ValidateMetadata(meta); err != nil {
		return err
	}
	if len(seed.Operations()) == 0 {
		return fmt.Errorf("%w: %s", ErrNoOperations, meta.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[meta.ID]; ok {
		return fmt.Errorf("%w: %s", ErrSeedExists, meta.ID)
	}
	r.items[meta.ID] = seed
	return nil
}

// Resolve returns a seed by id.
func (r *Registry) Resolve(id string) (Seed, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seed, ok := r.items[id]
	return seed, ok
}

// Len reports the number of registered seeds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// ListMetadata returns deterministic metadata ordering by id.
func (r *Registry) ListMetadata() []SeedMetadata {
	infos := r.List()
	list := make([]SeedMetadata, 0, len(infos))
	for _, info := range infos {
		list = append(list, info.SeedMetadata)
	}
	return list
}

// List returns metadata and operations ordered by id.
func (r *Registry) List() []SeedInfo {
	r.mu.RLock()
	list := make([]SeedInfo, 0, len(r.items))
	for _, seed := range r.items {
		list = append(list, SeedInfo{SeedMetadata: seed.Metadata(), Operations: seed.Operations()})
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

// IsValidID accepts lowercase dotted identifiers such as "django.blog".
func IsValidID(id string) bool {
	if id == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(id); i++ {
		c := id[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if i == 0 || i == len(id)-1 {
			if isSep {
				return false
			}
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}
