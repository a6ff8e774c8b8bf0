package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
	"github.com/zenGate-Global/palmyra-sharding/platform/go/persistence"
)

// PostgresStore implements the directory store on the shared persistence
// layer.
type PostgresStore struct {
	store *persistence.DirectoryStore
}

// NewPostgresStore constructs a store backed by the shard_directory table.
func NewPostgresStore(store *persistence.DirectoryStore) *PostgresStore {
	if store == nil {
		panic("directory store is required")
	}
	return &PostgresStore{store: store}
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]service.DatabaseInformation, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]service.DatabaseInformation, 0, len(records))
	for _, rec := range records {
		entries = append(entries, toInformation(rec))
	}
	return entries, nil
}

func (s *PostgresStore) GetByName(ctx context.Context, name string) (service.DatabaseInformation, error) {
	rec, err := s.store.Get(ctx, name)
	if err != nil {
		return service.DatabaseInformation{}, mapStoreError(err, name)
	}
	return toInformation(rec), nil
}

func (s *PostgresStore) Add(ctx context.Context, info service.DatabaseInformation) error {
	if err := info.ValidateForWrite(); err != nil {
		return err
	}
	if err := s.store.Insert(ctx, toRecord(info)); err != nil {
		return mapStoreError(err, info.Name)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, info service.DatabaseInformation) error {
	if err := info.ValidateForWrite(); err != nil {
		return err
	}
	if err := s.store.Update(ctx, toRecord(info)); err != nil {
		return mapStoreError(err, info.Name)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return mapStoreError(err, name)
	}
	return nil
}

func toRecord(info service.DatabaseInformation) persistence.DirectoryRecord {
	return persistence.DirectoryRecord{
		Name:           info.Name,
		ConnectionName: info.ConnectionName,
		DatabaseName:   info.DatabaseName,
		DatabaseType:   info.DatabaseType,
	}
}

func toInformation(rec persistence.DirectoryRecord) service.DatabaseInformation {
	return service.DatabaseInformation{
		Name:           rec.Name,
		ConnectionName: rec.ConnectionName,
		DatabaseName:   rec.DatabaseName,
		DatabaseType:   rec.DatabaseType,
	}
}

func mapStoreError(err error, name string) error {
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %q", service.ErrNotFound, name)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %q", service.ErrDuplicateName, name)
	default:
		return err
	}
}

// Ensure interface compliance.
var _ service.Store = (*PostgresStore)(nil)
