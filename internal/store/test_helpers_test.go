package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/roach88/rowbridge/internal/ir"
)

// createTestStore creates a new on-disk store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createSchemaStore creates a store with the partner model tables.
func createSchemaStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	if err := s.EnsureSchema(context.Background(), []ir.ModelDefinition{testPartnerModel()}); err != nil {
		t.Fatalf("EnsureSchema() failed: %v", err)
	}
	return s
}

// openSession acquires a session and releases it at cleanup.
func openSession(t *testing.T, s *Store, mode Mode) *Session {
	t.Helper()
	sess, err := s.Session(context.Background(), mode)
	if err != nil {
		t.Fatalf("Session() failed: %v", err)
	}
	t.Cleanup(func() { sess.Release() })
	return sess
}

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
// Queries are matched exactly.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

// newMockSession wraps a sqlmock connection in a session.
func newMockSession(t *testing.T, mode Mode) (*Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("failed to get conn: %v", err)
	}
	sess := NewSession(conn, mode)
	t.Cleanup(func() { sess.Release() })
	return sess, mock
}

func testPartnerModel() ir.ModelDefinition {
	return ir.ModelDefinition{
		Name:  "res.partner",
		Table: "res_partner",
		Columns: []ir.ColumnDefinition{
			{Name: "name", Type: ir.TypeString, Required: true},
			{Name: "active", Type: ir.TypeBool},
			{Name: "credit_limit", Type: ir.TypeReal},
			{Name: "parent_id", Type: ir.TypeMany2One, Relation: ir.RelationManyToOne, Ref: "res.partner"},
			{Name: "category_ids", Type: ir.TypeMany2Many, Relation: ir.RelationManyToMany, Ref: "res.partner.category", LinkTable: "res_partner_category_ids_rel"},
		},
	}
}
