package provider

import (
	"fmt"
	"path"
	"strings"
)

// SqliteShortName is the DatabaseType tag handled by the Sqlite builder.
const SqliteShortName = "Sqlite"

// AppDirPlaceholder stands for the deployment's writable data directory in
// sqlite connection templates, e.g. "file:{AppDir}/app.sqlite".
const AppDirPlaceholder = "{AppDir}"

// Sqlite builds file DSNs for the sqlite driver. Sqlite has no catalog
// component: the database name is a file name, placed in the configured data
// directory when the template carries the {AppDir} placeholder.
type Sqlite struct {
	dataDir   string
	extension string
}

// NewSqlite constructs the Sqlite builder. dataDir replaces the {AppDir}
// placeholder; extension (without dot) is applied to database names that
// carry none.
func NewSqlite(dataDir, extension string) Sqlite {
	if dataDir == "" {
		panic("sqlite builder requires a data directory")
	}
	if extension == "" {
		extension = "sqlite"
	}
	return Sqlite{dataDir: strings.TrimSuffix(dataDir, "/"), extension: extension}
}

func (Sqlite) ShortName() string { return SqliteShortName }

func (s Sqlite) BuildConnectionString(databaseName, template string) (string, error) {
	prefix, filePath, query, err := splitSqliteDSN(template)
	if err != nil {
		return "", err
	}

	if databaseName == "" {
		if filePath == "" {
			return "", ErrMissingDatabaseName
		}
		// Keep the file the template already names, resolving the
		// placeholder only.
		return prefix + strings.Replace(filePath, AppDirPlaceholder, s.dataDir, 1) + query, nil
	}

	fileName := databaseName
	if path.Ext(fileName) == "" {
		fileName += "." + s.extension
	}

	if strings.Contains(filePath, AppDirPlaceholder) {
		filePath = s.dataDir + "/" + fileName
	} else {
		filePath = fileName
	}
	return prefix + filePath + query, nil
}

func (s Sqlite) ValidateTemplate(template string) error {
	// A template without a file path is acceptable when every entry supplies
	// its own DatabaseName; the resolver's dry run surfaces the combination
	// that doesn't.
	_, _, _, err := splitSqliteDSN(template)
	return err
}

func (s Sqlite) DatabaseFromConnectionString(connString string) (string, error) {
	_, filePath, _, err := splitSqliteDSN(connString)
	if err != nil {
		return "", err
	}
	name := path.Base(filePath)
	name = strings.TrimSuffix(name, "."+s.extension)
	return name, nil
}

// SqliteFilePath extracts the database file path from a built sqlite DSN.
// Used by the schema manager to create and remove tenant database files.
func SqliteFilePath(connString string) (string, error) {
	_, filePath, _, err := splitSqliteDSN(connString)
	if err != nil {
		return "", err
	}
	if filePath == "" {
		return "", ErrMissingDatabaseName
	}
	return filePath, nil
}

// splitSqliteDSN separates the optional file: prefix, the file path, and the
// query options of a sqlite DSN.
func splitSqliteDSN(dsn string) (prefix, filePath, query string, err error) {
	if strings.TrimSpace(dsn) == "" {
		return "", "", "", fmt.Errorf("%w: empty sqlite template", ErrInvalidTemplate)
	}
	rest := dsn
	if strings.HasPrefix(rest, "file:") {
		prefix = "file:"
		rest = strings.TrimPrefix(rest, "file:")
	}
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		query = rest[idx:]
		rest = rest[:idx]
	}
	return prefix, rest, query, nil
}

var _ Builder = Sqlite{}
