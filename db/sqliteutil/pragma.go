package sqliteutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// IsMemory reports whether dsn names an in-memory database.
func IsMemory(dsn string) bool {
	lower := strings.ToLower(dsn)
	return dsn == ":memory:" || strings.HasPrefix(lower, "file::memory:") || strings.Contains(lower, "mode=memory")
}

// EnsurePragmas appends journal_mode(WAL) and busy_timeout pragmas to a file
// DSN unless the DSN already sets them. In-memory DSNs are returned as is.
func EnsurePragmas(dsn string, wal bool, busyTimeoutMS int) string {
	if dsn == "" || IsMemory(dsn) {
		return dsn
	}
	var pragmas []string
	lower := strings.ToLower(dsn)
	if wal && !strings.Contains(lower, "_pragma=journal_mode") {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}
	if busyTimeoutMS > 0 && !strings.Contains(lower, "_pragma=busy_timeout") {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	}
	for _, pragma := range pragmas {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=" + pragma
	}
	return dsn
}

// MainFile returns the file backing the main schema of db, or "" for
// in-memory and temporary databases.
func MainFile(ctx context.Context, db *sql.DB) (string, error) {
	var file sql.NullString
	err := db.QueryRowContext(ctx, `SELECT file FROM pragma_database_list WHERE name = 'main'`).Scan(&file)
	if err != nil {
		return "", err
	}
	return file.String, nil
}
