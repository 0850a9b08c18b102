package sqlstore

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite3: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBootstrapCreatesTables(t *testing.T) {
	db := openMemDB(t)

	if err := Bootstrap(db, "default", "JR_", false); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	for _, table := range []string{"JR_BUNDLE", "JR_REFS", "JR_BINVAL"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after bootstrap: %v", table, err)
		}
	}
}

func TestBootstrapSkipsBinvalWhenExternalBlobs(t *testing.T) {
	db := openMemDB(t)

	if err := Bootstrap(db, "default", "JR_", true); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, "JR_BINVAL").Scan(&name)
	if err != sql.ErrNoRows {
		t.Errorf("expected JR_BINVAL to be absent, got err=%v", err)
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	db := openMemDB(t)

	if err := Bootstrap(db, "default", "JR_", false); err != nil {
		t.Fatalf("first Bootstrap: %v", err)
	}
	if err := Bootstrap(db, "default", "JR_", false); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
}

func TestBootstrapUnknownSchemaFails(t *testing.T) {
	db := openMemDB(t)

	if err := Bootstrap(db, "no-such-schema", "JR_", false); err == nil {
		t.Error("expected error for unknown schema resource")
	}
}

func TestBootstrapSplitLongModel(t *testing.T) {
	db := openMemDB(t)

	if err := Bootstrap(db, "splitlong", "JR_", false); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	rows, err := db.Query(`PRAGMA table_info(JR_BUNDLE)`)
	if err != nil {
		t.Fatalf("table_info: %v", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			t.Fatalf("scan table_info: %v", err)
		}
		cols = append(cols, name)
	}
	if len(cols) != 3 {
		t.Fatalf("expected 3 columns, got %v", cols)
	}
}
