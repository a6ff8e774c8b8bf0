package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	shardingservice "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
)

// Service coordinates tenant creation and deletion across the tenant
// registry, the shard directory and the tenant database schema. Every
// create either completes all steps or compensates the ones already done,
// so the directory never keeps an entry for a tenant that was not
// registered.
type Service struct {
	registry  Registry
	directory *shardingservice.Directory
	resolver  *shardingservice.Resolver
	store     shardingservice.Store
	schema    SchemaManager
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	lastSetup *setupRecord
}

// setupRecord remembers the most recent successful create so a failed
// deployment rehearsal can be unwound with RemoveLastDatabaseSetup.
type setupRecord struct {
	tenantID     uuid.UUID
	entryName    string
	createdEntry bool
}

// NewService constructs the lifecycle coordinator with required
// dependencies.
func NewService(registry Registry, directory *shardingservice.Directory, resolver *shardingservice.Resolver, store shardingservice.Store, schema SchemaManager, logger *zap.Logger) *Service {
	if registry == nil {
		panic("tenant registry is required")
	}
	if directory == nil {
		panic("sharding directory is required")
	}
	if resolver == nil {
		panic("sharding resolver is required")
	}
	if store == nil {
		panic("sharding store is required")
	}
	if schema == nil {
		panic("schema manager is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Service{
		registry:  registry,
		directory: directory,
		resolver:  resolver,
		store:     store,
		schema:    schema,
		logger:    logger,
		now:       time.Now,
	}
}

// ListTenants returns every registered tenant.
func (s *Service) ListTenants(ctx context.Context) ([]Tenant, error) {
	return s.registry.ListAll(ctx)
}

// GetTenant fetches one tenant by id.
func (s *Service) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	return s.registry.GetByID(ctx, id)
}

// CreateTenantDatabase registers a tenant and prepares its database. With
// HasOwnDb true a fresh directory entry is synthesized and added; with
// HasOwnDb false the tenant joins the named existing entry. The tenant
// schema is migrated and seeded before the tenant record is written, so a
// registered tenant always has a working database behind it.
func (s *Service) CreateTenantDatabase(ctx context.Context, input CreateInput) (Tenant, error) {
	if err := input.Validate(); err != nil {
		return Tenant{}, err
	}

	if _, err := s.registry.GetByName(ctx, input.TenantName); err == nil {
		return Tenant{}, fmt.Errorf("%w: %q", ErrDuplicateTenantName, input.TenantName)
	} else if !errors.Is(err, ErrTenantNotFound) {
		return Tenant{}, err
	}

	var (
		info         shardingservice.DatabaseInformation
		createdEntry bool
	)
	if *input.HasOwnDb {
		info = FormDatabaseInformation(input, s.now())
		if err := s.directory.Add(ctx, info); err != nil {
			return Tenant{}, err
		}
		createdEntry = true
	} else {
		existing, err := s.store.GetByName(ctx, input.DatabaseInfoName)
		if err != nil {
			return Tenant{}, err
		}
		if err := s.ensureJoinable(ctx, existing.Name); err != nil {
			return Tenant{}, err
		}
		info = existing
	}

	connString, err := s.resolver.FormConnectionString(ctx, info.Name)
	if err != nil {
		s.compensateEntry(ctx, createdEntry, info.Name)
		return Tenant{}, err
	}

	tenant := Tenant{
		ID:               uuid.New(),
		Name:             input.TenantName,
		DatabaseInfoName: info.Name,
		HasOwnDb:         *input.HasOwnDb,
		CreatedAt:        s.now().UTC(),
	}

	if err := s.schema.Ensure(ctx, info.DatabaseType, connString); err != nil {
		s.compensateDatabase(ctx, createdEntry, info, connString)
		return Tenant{}, fmt.Errorf("%w: %v", ErrSchemaInit, err)
	}
	if err := s.schema.Seed(ctx, info.DatabaseType, connString, tenant.ID, tenant.Name); err != nil {
		s.compensateDatabase(ctx, createdEntry, info, connString)
		return Tenant{}, fmt.Errorf("%w: %v", ErrSchemaInit, err)
	}

	if err := s.registry.Create(ctx, tenant); err != nil {
		if createdEntry {
			s.compensateDatabase(ctx, true, info, connString)
		} else {
			s.compensateSeed(ctx, info, connString, tenant.ID)
		}
		return Tenant{}, err
	}

	s.mu.Lock()
	s.lastSetup = &setupRecord{tenantID: tenant.ID, entryName: info.Name, createdEntry: createdEntry}
	s.mu.Unlock()

	s.logger.Info("tenant database created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("tenant_name", tenant.Name),
		zap.String("database_info_name", info.Name),
		zap.Bool("has_own_db", tenant.HasOwnDb))
	return tenant, nil
}

// DeleteTenantDatabase removes a tenant. An exclusively owned database is
// dropped and its directory entry removed; on a shared database only the
// tenant's own rows are deleted. The operation is safely retriable: absent
// directory entries are tolerated.
func (s *Service) DeleteTenantDatabase(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.registry.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}

	info, err := s.store.GetByName(ctx, tenant.DatabaseInfoName)
	entryPresent := err == nil
	if err != nil && !errors.Is(err, shardingservice.ErrNotFound) {
		return err
	}

	if entryPresent {
		connString, err := s.resolver.FormConnectionString(ctx, info.Name)
		if err != nil {
			return err
		}
		if tenant.HasOwnDb {
			if err := s.schema.Drop(ctx, info.DatabaseType, connString); err != nil {
				return fmt.Errorf("drop tenant database: %w", err)
			}
		} else {
			if err := s.schema.RemoveSeed(ctx, info.DatabaseType, connString, tenant.ID); err != nil {
				return fmt.Errorf("remove tenant data: %w", err)
			}
		}
	}

	if err := s.registry.Delete(ctx, tenant.ID); err != nil {
		return err
	}

	if tenant.HasOwnDb && entryPresent {
		if err := s.directory.Remove(ctx, info.Name); err != nil && !errors.Is(err, shardingservice.ErrNotFound) {
			return err
		}
	}

	s.mu.Lock()
	if s.lastSetup != nil && s.lastSetup.tenantID == tenant.ID {
		s.lastSetup = nil
	}
	s.mu.Unlock()

	s.logger.Info("tenant database deleted",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("tenant_name", tenant.Name),
		zap.Bool("has_own_db", tenant.HasOwnDb))
	return nil
}

// RemoveLastDatabaseSetup unwinds the most recent successful create on this
// instance. Intended for deployment rehearsals and demos; it is a no-op
// when nothing was created since startup.
func (s *Service) RemoveLastDatabaseSetup(ctx context.Context) error {
	s.mu.Lock()
	last := s.lastSetup
	s.mu.Unlock()

	if last == nil {
		return nil
	}
	if err := s.DeleteTenantDatabase(ctx, last.tenantID); err != nil && !errors.Is(err, ErrTenantNotFound) {
		return err
	}

	s.mu.Lock()
	s.lastSetup = nil
	s.mu.Unlock()
	return nil
}

// ensureJoinable refuses joining an entry another tenant holds exclusively.
func (s *Service) ensureJoinable(ctx context.Context, entryName string) error {
	tenants, err := s.registry.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, t := range tenants {
		if t.DatabaseInfoName == entryName && t.HasOwnDb {
			return fmt.Errorf("%w: entry %q is exclusively owned by tenant %q", ErrValidation, entryName, t.Name)
		}
	}
	return nil
}

// compensateEntry removes a directory entry created earlier in a failed
// create. Compensation failures are logged but never mask the original
// error.
func (s *Service) compensateEntry(ctx context.Context, createdEntry bool, entryName string) {
	if !createdEntry {
		return
	}
	if err := s.directory.Remove(ctx, entryName); err != nil && !errors.Is(err, shardingservice.ErrNotFound) {
		s.logger.Error("compensation failed: directory entry left behind",
			zap.String("database_info_name", entryName),
			zap.Error(err))
	}
}

// compensateDatabase drops a database created for an owned entry and then
// removes the entry itself.
func (s *Service) compensateDatabase(ctx context.Context, createdEntry bool, info shardingservice.DatabaseInformation, connString string) {
	if !createdEntry {
		return
	}
	if err := s.schema.Drop(ctx, info.DatabaseType, connString); err != nil {
		s.logger.Error("compensation failed: tenant database left behind",
			zap.String("database_info_name", info.Name),
			zap.Error(err))
	}
	s.compensateEntry(ctx, true, info.Name)
}

// compensateSeed deletes the rows seeded for a tenant whose registration
// ultimately failed, so a shared database is not polluted.
func (s *Service) compensateSeed(ctx context.Context, info shardingservice.DatabaseInformation, connString string, tenantID uuid.UUID) {
	if err := s.schema.RemoveSeed(ctx, info.DatabaseType, connString, tenantID); err != nil {
		s.logger.Error("compensation failed: seeded tenant rows left behind",
			zap.String("database_info_name", info.Name),
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}
