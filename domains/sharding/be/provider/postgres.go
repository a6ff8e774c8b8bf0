package provider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresShortName is the DatabaseType tag handled by the Postgres builder.
const PostgresShortName = "PostgreSQL"

// Postgres builds pgx-compatible connection strings. Both the URL form
// (postgres://...) and the keyword DSN form (host=... dbname=...) are
// supported, matching what pgconn itself accepts.
type Postgres struct{}

// NewPostgres constructs the Postgres builder.
func NewPostgres() Postgres { return Postgres{} }

func (Postgres) ShortName() string { return PostgresShortName }

func (p Postgres) BuildConnectionString(databaseName, template string) (string, error) {
	if isPostgresURL(template) {
		return p.buildURL(databaseName, template)
	}
	return p.buildDSN(databaseName, template)
}

func (p Postgres) buildURL(databaseName, template string) (string, error) {
	u, err := url.Parse(template)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	if databaseName == "" {
		if strings.Trim(u.Path, "/") == "" {
			return "", ErrMissingDatabaseName
		}
		return template, nil
	}

	u.Path = "/" + databaseName
	return u.String(), nil
}

func (p Postgres) buildDSN(databaseName, template string) (string, error) {
	fields := strings.Fields(template)
	dbnameIdx := -1
	for i, f := range fields {
		if strings.HasPrefix(f, "dbname=") {
			dbnameIdx = i
			break
		}
	}

	if databaseName == "" {
		if dbnameIdx < 0 || fields[dbnameIdx] == "dbname=" {
			return "", ErrMissingDatabaseName
		}
		return template, nil
	}

	if dbnameIdx >= 0 {
		fields[dbnameIdx] = "dbname=" + databaseName
	} else {
		fields = append(fields, "dbname="+databaseName)
	}
	return strings.Join(fields, " "), nil
}

func (p Postgres) ValidateTemplate(template string) error {
	if _, err := pgconn.ParseConfig(template); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return nil
}

func (p Postgres) DatabaseFromConnectionString(connString string) (string, error) {
	// Parse at the string level rather than with pgconn.ParseConfig, which
	// substitutes the OS user when no database is present.
	if isPostgresURL(connString) {
		u, err := url.Parse(connString)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		return strings.Trim(u.Path, "/"), nil
	}
	for _, f := range strings.Fields(connString) {
		if value, found := strings.CutPrefix(f, "dbname="); found {
			return value, nil
		}
	}
	return "", nil
}

func isPostgresURL(connString string) bool {
	return strings.HasPrefix(connString, "postgres://") ||
		strings.HasPrefix(connString, "postgresql://")
}

var _ Builder = Postgres{}
