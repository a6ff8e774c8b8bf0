package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sharding/platform/go/distlock"
)

// Directory is the write path of the shard directory: validated, dry-run
// checked mutations applied under the deployment-wide lock.
type Directory struct {
	store    Store
	resolver *Resolver
	links    TenantLinks
	locker   distlock.Locker
	logger   *zap.Logger
}

// NewDirectory constructs a Directory with required dependencies.
func NewDirectory(store Store, resolver *Resolver, links TenantLinks, locker distlock.Locker, logger *zap.Logger) *Directory {
	if store == nil {
		panic("sharding store is required")
	}
	if resolver == nil {
		panic("sharding resolver is required")
	}
	if links == nil {
		panic("tenant links reader is required")
	}
	if locker == nil {
		panic("distributed locker is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Directory{store: store, resolver: resolver, links: links, locker: locker, logger: logger}
}

// Add inserts a new directory entry after validating it and dry-running the
// connection string build.
func (d *Directory) Add(ctx context.Context, info DatabaseInformation) error {
	if err := d.resolver.TestFormingConnectionString(ctx, info); err != nil {
		return err
	}

	return d.locker.RunExclusive(ctx, distlock.DirectoryLockName, func(ctx context.Context) error {
		if err := d.store.Add(ctx, info); err != nil {
			return err
		}
		d.logger.Info("directory entry added",
			zap.String("name", info.Name),
			zap.String("database_type", info.DatabaseType))
		return nil
	})
}

// Update replaces an existing entry, with the same validation as Add.
func (d *Directory) Update(ctx context.Context, info DatabaseInformation) error {
	if err := d.resolver.TestFormingConnectionString(ctx, info); err != nil {
		return err
	}

	return d.locker.RunExclusive(ctx, distlock.DirectoryLockName, func(ctx context.Context) error {
		if err := d.store.Update(ctx, info); err != nil {
			return err
		}
		d.logger.Info("directory entry updated", zap.String("name", info.Name))
		return nil
	})
}

// Remove deletes the entry with the given name. Removal is refused while a
// tenant still owns the entry exclusively.
func (d *Directory) Remove(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}

	return d.locker.RunExclusive(ctx, distlock.DirectoryLockName, func(ctx context.Context) error {
		links, err := d.links.ListLinks(ctx)
		if err != nil {
			return fmt.Errorf("list tenant links: %w", err)
		}
		for _, link := range links {
			if link.DatabaseInfoName == name && link.HasOwnDb {
				return fmt.Errorf("%w: entry %q is owned by tenant %q", ErrValidation, name, link.TenantName)
			}
		}

		if err := d.store.Remove(ctx, name); err != nil {
			return err
		}
		d.logger.Info("directory entry removed", zap.String("name", name))
		return nil
	})
}

// SeedDefault inserts the configured default entry when the directory is
// empty, so a fresh deployment resolves the primary connection without
// manual setup.
func (d *Directory) SeedDefault(ctx context.Context, info DatabaseInformation) error {
	if err := info.ValidateForWrite(); err != nil {
		return err
	}

	return d.locker.RunExclusive(ctx, distlock.DirectoryLockName, func(ctx context.Context) error {
		entries, err := d.store.ListAll(ctx)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return nil
		}
		if err := d.store.Add(ctx, info); err != nil {
			return err
		}
		d.logger.Info("seeded default directory entry", zap.String("name", info.Name))
		return nil
	})
}
