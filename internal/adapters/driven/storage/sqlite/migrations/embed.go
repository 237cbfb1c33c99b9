// Package migrations embeds SQL migration files for the SQLite stores.
//
// The ledger and the vector store live in separate database files, so each
// has its own migration directory.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
//
//go:embed ledger/*.sql vectors/*.sql
var FS embed.FS

// Directories within FS.
const (
	LedgerDir  = "ledger"
	VectorsDir = "vectors"
)
