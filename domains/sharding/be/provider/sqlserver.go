package provider

import (
	"fmt"
	"strings"
)

// SqlServerShortName is the DatabaseType tag handled by the SqlServer
// builder.
const SqlServerShortName = "SqlServer"

// SqlServer builds ADO-style SqlServer connection strings. The catalog
// component is carried by either "Initial Catalog" or "Database"; the
// builder replaces it in place so the rest of the template survives
// untouched.
type SqlServer struct{}

// NewSqlServer constructs the SqlServer builder.
func NewSqlServer() SqlServer { return SqlServer{} }

func (SqlServer) ShortName() string { return SqlServerShortName }

func (s SqlServer) BuildConnectionString(databaseName, template string) (string, error) {
	pairs, err := parseAdoPairs(template)
	if err != nil {
		return "", err
	}

	catalogIdx := -1
	for i, p := range pairs {
		if isCatalogKey(p.key) {
			catalogIdx = i
			break
		}
	}

	if databaseName == "" {
		if catalogIdx < 0 || pairs[catalogIdx].value == "" {
			return "", ErrMissingDatabaseName
		}
		return joinAdoPairs(pairs), nil
	}

	if catalogIdx >= 0 {
		pairs[catalogIdx].value = databaseName
	} else {
		pairs = append(pairs, adoPair{key: "Initial Catalog", value: databaseName})
	}
	return joinAdoPairs(pairs), nil
}

func (s SqlServer) ValidateTemplate(template string) error {
	pairs, err := parseAdoPairs(template)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("%w: no keywords in template", ErrInvalidTemplate)
	}
	return nil
}

func (s SqlServer) DatabaseFromConnectionString(connString string) (string, error) {
	pairs, err := parseAdoPairs(connString)
	if err != nil {
		return "", err
	}
	for _, p := range pairs {
		if isCatalogKey(p.key) {
			return p.value, nil
		}
	}
	return "", nil
}

func isCatalogKey(key string) bool {
	return strings.EqualFold(key, "Initial Catalog") || strings.EqualFold(key, "Database")
}

// adoPair is one "Key=Value" element of an ADO connection string, with the
// original key spelling and ordering preserved.
type adoPair struct {
	key   string
	value string
}

func parseAdoPairs(connString string) ([]adoPair, error) {
	var pairs []adoPair
	for _, segment := range strings.Split(connString, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, found := strings.Cut(segment, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: segment %q is not Key=Value", ErrInvalidTemplate, segment)
		}
		pairs = append(pairs, adoPair{key: strings.TrimSpace(key), value: strings.TrimSpace(value)})
	}
	return pairs, nil
}

func joinAdoPairs(pairs []adoPair) string {
	segments := make([]string, 0, len(pairs))
	for _, p := range pairs {
		segments = append(segments, p.key+"="+p.value)
	}
	return strings.Join(segments, ";")
}

var _ Builder = SqlServer{}
