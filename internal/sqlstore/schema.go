package sqlstore

import (
	"bufio"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

//go:embed schema/*.ddl
var ddlFiles embed.FS

// Bootstrap implements the schema bootstrapper (C8): it checks whether
// the prefixed bundle table already exists and, if not, executes the
// named DDL resource with ${schemaObjectPrefix} substituted.
//
// schemaName selects the resource schema/<schemaName>.ddl. externalBlobs
// true means blobs live in the filesystem backend, so any DDL line that
// mentions BINVAL is skipped — that table belongs to the DB-resident
// backend only.
func Bootstrap(db *sql.DB, schemaName, prefix string, externalBlobs bool) error {
	exists, err := tableExists(db, prefix+"BUNDLE")
	if err != nil {
		return perrors.Wrap(perrors.SchemaError, "probe bundle table", err)
	}
	if exists {
		return nil
	}

	raw, err := ddlFiles.ReadFile(fmt.Sprintf("schema/%s.ddl", schemaName))
	if err != nil {
		return perrors.WrapItem(perrors.SchemaError, "load DDL resource", schemaName, err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if externalBlobs && strings.Contains(line, "BINVAL") {
			continue
		}
		stmt := strings.ReplaceAll(line, "${schemaObjectPrefix}", prefix)
		if _, err := db.Exec(stmt); err != nil {
			return perrors.WrapItem(perrors.SchemaError, "execute DDL statement", stmt, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return perrors.Wrap(perrors.SchemaError, "scan DDL resource", err)
	}
	return nil
}

func tableExists(db *sql.DB, tableName string) (bool, error) {
	var name string
	err := db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`,
		tableName,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
