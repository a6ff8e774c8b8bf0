package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	shardingservice "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
	"github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/service"
)

// MemoryRegistry is an in-memory tenant registry for tests and
// single-instance development. It also serves the directory's tenant-link
// view.
type MemoryRegistry struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]service.Tenant
}

// NewMemoryRegistry constructs a MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{byID: make(map[uuid.UUID]service.Tenant)}
}

func (r *MemoryRegistry) ListAll(ctx context.Context) ([]service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenants := make([]service.Tenant, 0, len(r.byID))
	for _, t := range r.byID {
		tenants = append(tenants, t)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].Name < tenants[j].Name })
	return tenants, nil
}

func (r *MemoryRegistry) GetByID(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return service.Tenant{}, fmt.Errorf("%w: %s", service.ErrTenantNotFound, id)
	}
	return t, nil
}

func (r *MemoryRegistry) GetByName(ctx context.Context, name string) (service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.byID {
		if t.Name == name {
			return t, nil
		}
	}
	return service.Tenant{}, fmt.Errorf("%w: %q", service.ErrTenantNotFound, name)
}

func (r *MemoryRegistry) Create(ctx context.Context, tenant service.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.byID {
		if t.Name == tenant.Name {
			return fmt.Errorf("%w: %q", service.ErrDuplicateTenantName, tenant.Name)
		}
	}
	r.byID[tenant.ID] = tenant
	return nil
}

func (r *MemoryRegistry) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("%w: %s", service.ErrTenantNotFound, id)
	}
	delete(r.byID, id)
	return nil
}

// ListLinks reports tenant-to-entry linkage for the shard directory.
func (r *MemoryRegistry) ListLinks(ctx context.Context) ([]shardingservice.TenantLink, error) {
	tenants, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	links := make([]shardingservice.TenantLink, 0, len(tenants))
	for _, t := range tenants {
		links = append(links, shardingservice.TenantLink{
			TenantName:       t.Name,
			DatabaseInfoName: t.DatabaseInfoName,
			HasOwnDb:         t.HasOwnDb,
		})
	}
	return links, nil
}

// Ensure interface compliance.
var (
	_ service.Registry            = (*MemoryRegistry)(nil)
	_ shardingservice.TenantLinks = (*MemoryRegistry)(nil)
)
