package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/queryir"
	"github.com/roach88/rowbridge/internal/querysql"
)

// Mode is the access mode of a session.
type Mode int

const (
	// ReadOnly sessions reject every write.
	ReadOnly Mode = iota
	// ReadWrite sessions allow reads and writes.
	ReadWrite
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case ReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	// ErrReadOnly is returned when a write is attempted on a ReadOnly session.
	ErrReadOnly = errors.New("store: session is read-only")
	// ErrReleased is returned when a released session is used.
	ErrReleased = errors.New("store: session released")
)

// Session is a scoped handle on one user database, backed by a dedicated
// connection. A session serves one router operation; Release returns the
// connection to the pool and is safe to call more than once.
//
// A Session is not safe for concurrent use.
type Session struct {
	conn     *sql.Conn
	mode     Mode
	compiler *querysql.SQLCompiler
	released bool
}

// NewSession wraps an existing connection.
func NewSession(conn *sql.Conn, mode Mode) *Session {
	return &Session{conn: conn, mode: mode, compiler: querysql.NewSQLCompiler()}
}

// Mode returns the session's access mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Release closes the session's connection.
func (s *Session) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	return s.conn.Close()
}

func (s *Session) check(write bool) error {
	if s.released {
		return ErrReleased
	}
	if write && s.mode != ReadWrite {
		return ErrReadOnly
	}
	return nil
}

// Read runs a select and materializes every row.
// The result is always non-nil on success, with Columns equal to q.Columns.
func (s *Session) Read(ctx context.Context, q queryir.Select) (*ir.ResultSet, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	query, args, err := s.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", q.Table, err)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", q.Table, err)
	}
	defer rows.Close()

	result := &ir.ResultSet{Columns: append([]string(nil), q.Columns...), Rows: [][]ir.Value{}}
	for rows.Next() {
		raw := make([]any, len(q.Columns))
		ptrs := make([]any, len(raw))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Table, err)
		}

		row := make([]ir.Value, len(raw))
		for i, v := range raw {
			row[i] = ir.FromColumn(v)
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Table, err)
	}
	return result, nil
}

// Insert writes one row and returns its new _id.
func (s *Session) Insert(ctx context.Context, stmt queryir.Insert) (int64, error) {
	res, err := s.exec(ctx, stmt, stmt.Table)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s: last insert id: %w", stmt.Table, err)
	}
	return id, nil
}

// Update rewrites matching rows and returns how many changed.
func (s *Session) Update(ctx context.Context, stmt queryir.Update) (int64, error) {
	res, err := s.exec(ctx, stmt, stmt.Table)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res, stmt.Table)
}

// Delete removes matching rows and returns how many were removed.
func (s *Session) Delete(ctx context.Context, stmt queryir.Delete) (int64, error) {
	res, err := s.exec(ctx, stmt, stmt.Table)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res, stmt.Table)
}

// SelectRowID returns the lowest _id matching filter.
// The bool is false when nothing matches.
func (s *Session) SelectRowID(ctx context.Context, table string, filter queryir.Predicate) (int64, bool, error) {
	rs, err := s.Read(ctx, queryir.Select{
		Table:   table,
		Columns: []string{ir.RowIDColumn},
		Filter:  filter,
		Limit:   1,
	})
	if err != nil {
		return 0, false, err
	}
	if rs.Len() == 0 {
		return 0, false, nil
	}
	id, ok := rs.Rows[0][0].(ir.Integer)
	if !ok {
		return 0, false, fmt.Errorf("select row id %s: unexpected %T", table, rs.Rows[0][0])
	}
	return int64(id), true, nil
}

// ReplaceLinks makes targets the complete, ordered link set of owner in
// linkTable. Old links are deleted and the new ones inserted in a single
// transaction. Repeated targets keep their first position.
func (s *Session) ReplaceLinks(ctx context.Context, linkTable string, owner int64, targets []int64) error {
	if err := s.check(true); err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace links %s: begin: %w", linkTable, err)
	}
	defer tx.Rollback() // No-op if committed

	del, args, err := s.compiler.Compile(queryir.Delete{
		Table:  linkTable,
		Filter: queryir.Equals{Column: LinkOwnerColumn, Value: ir.Integer(owner)},
	})
	if err != nil {
		return fmt.Errorf("replace links %s: %w", linkTable, err)
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("replace links %s: delete: %w", linkTable, err)
	}

	seen := make(map[int64]bool, len(targets))
	ordinal := 0
	for _, target := range targets {
		if seen[target] {
			continue
		}
		seen[target] = true

		ins, args, err := s.compiler.Compile(queryir.Insert{
			Table:   linkTable,
			Columns: []string{LinkOwnerColumn, LinkTargetColumn, LinkOrdinalColumn},
			Values:  []ir.Value{ir.Integer(owner), ir.Integer(target), ir.Integer(ordinal)},
		})
		if err != nil {
			return fmt.Errorf("replace links %s: %w", linkTable, err)
		}
		if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
			return fmt.Errorf("replace links %s: insert %d: %w", linkTable, target, err)
		}
		ordinal++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace links %s: commit: %w", linkTable, err)
	}
	return nil
}

// Links returns the target ids linked to owner, in stored order.
// Returns an empty slice (not nil) when there are none.
func (s *Session) Links(ctx context.Context, linkTable string, owner int64) ([]int64, error) {
	rs, err := s.Read(ctx, queryir.Select{
		Table:   linkTable,
		Columns: []string{LinkTargetColumn},
		Filter:  queryir.Equals{Column: LinkOwnerColumn, Value: ir.Integer(owner)},
		OrderBy: querysql.QuoteIdent(LinkOrdinalColumn) + " ASC",
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, rs.Len())
	for _, row := range rs.Rows {
		id, ok := row[0].(ir.Integer)
		if !ok {
			return nil, fmt.Errorf("links %s: unexpected %T", linkTable, row[0])
		}
		ids = append(ids, int64(id))
	}
	return ids, nil
}

func (s *Session) exec(ctx context.Context, stmt queryir.Statement, table string) (sql.Result, error) {
	if err := s.check(true); err != nil {
		return nil, err
	}
	query, args, err := s.compiler.Compile(stmt)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", table, err)
	}
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", table, err)
	}
	return res, nil
}

func rowsAffected(res sql.Result, table string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("write %s: rows affected: %w", table, err)
	}
	return n, nil
}
