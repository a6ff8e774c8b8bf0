package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors returned by the tenant lifecycle service.
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrDuplicateTenantName = errors.New("tenant name already used")
	ErrValidation          = errors.New("invalid tenant request")
	ErrSchemaInit          = errors.New("tenant schema initialization failed")
)

// Tenant is one registered tenant and its database placement.
type Tenant struct {
	ID               uuid.UUID
	Name             string
	DatabaseInfoName string
	HasOwnDb         bool
	CreatedAt        time.Time
}

// Registry persists tenants and their directory linkage.
type Registry interface {
	ListAll(ctx context.Context) ([]Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (Tenant, error)
	GetByName(ctx context.Context, name string) (Tenant, error)
	Create(ctx context.Context, tenant Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error
}
