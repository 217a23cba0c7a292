package ir

// Version constants for the on-disk schema and the tool.
const (
	// SchemaVersion is written to PRAGMA user_version of every user database.
	SchemaVersion = 1

	// Version is the rowbridge release version.
	Version = "0.1.0"
)
