package database

import "testing"

func TestOpenMigrates(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, table := range []string{"families", "users", "documents"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestOpenEnforcesForeignKeys(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`INSERT INTO users (id, email, name, password_hash, family_id, created_at)
		VALUES ('u1', 'a@example.com', 'Ann', 'x', 'missing', '2026-01-01T00:00:00Z')`)
	if err == nil {
		t.Fatal("expected foreign key violation, got nil")
	}
}
