// Package store provides per-user SQLite storage for model rows and
// many2many link tables.
//
// Each user owns one database file, `<dir>/<user>.db`, opened lazily by a
// Pool. Callers work through a Session: a dedicated connection acquired for
// one operation and released when it ends. Sessions speak queryir
// statements; SQL text comes from the querysql compiler.
//
// # Tables
//
//   - Model tables: `_id INTEGER PRIMARY KEY AUTOINCREMENT`, the declared
//     physical columns, `_write_date TEXT`
//   - Link tables: `owner_id`, `target_id`, `ordinal`, keyed by
//     (owner_id, target_id); ordinal preserves caller order
//
// Schema creation is idempotent (`CREATE TABLE IF NOT EXISTS`) and stamps
// `PRAGMA user_version` with ir.SchemaVersion. There is no migration of
// existing tables.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
