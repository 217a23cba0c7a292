package store

import (
	"context"
	"fmt"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/queryir"
)

// Link table columns.
const (
	LinkOwnerColumn   = "owner_id"
	LinkTargetColumn  = "target_id"
	LinkOrdinalColumn = "ordinal"
)

// TableStatements returns the CREATE TABLE statements for a model:
// the row table first, then one link table per many2many column.
func TableStatements(def ir.ModelDefinition) []queryir.CreateTable {
	cols := []queryir.ColumnSpec{
		{Name: ir.RowIDColumn, Type: "INTEGER", PrimaryKey: true, AutoIncrement: true},
	}
	for _, c := range def.Columns {
		if c.Relation == ir.RelationManyToMany {
			continue
		}
		cols = append(cols, queryir.ColumnSpec{Name: c.Name, Type: c.Type.SQLType(), NotNull: c.Required})
	}
	cols = append(cols, queryir.ColumnSpec{Name: ir.WriteDateColumn, Type: "TEXT"})

	stmts := []queryir.CreateTable{{Table: def.Table, Columns: cols}}
	for _, c := range def.LinkColumns() {
		stmts = append(stmts, queryir.CreateTable{
			Table: c.LinkTable,
			Columns: []queryir.ColumnSpec{
				{Name: LinkOwnerColumn, Type: "INTEGER", NotNull: true},
				{Name: LinkTargetColumn, Type: "INTEGER", NotNull: true},
				{Name: LinkOrdinalColumn, Type: "INTEGER", NotNull: true},
			},
			PrimaryKey: []string{LinkOwnerColumn, LinkTargetColumn},
		})
	}
	return stmts
}

// EnsureSchema creates the tables of every model that does not exist yet
// and stamps the schema version. Existing tables are left untouched.
// This function is idempotent.
func (s *Store) EnsureSchema(ctx context.Context, defs []ir.ModelDefinition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ensure schema: begin: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, def := range defs {
		for _, stmt := range TableStatements(def) {
			query, _, err := s.compiler.Compile(stmt)
			if err != nil {
				return fmt.Errorf("ensure schema: model %s: %w", def.Name, err)
			}
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("ensure schema: create %s: %w", stmt.Table, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", ir.SchemaVersion)); err != nil {
		return fmt.Errorf("ensure schema: set user_version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ensure schema: commit: %w", err)
	}
	return nil
}
