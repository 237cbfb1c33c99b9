// Package sqlite provides the SQLite-backed ledger and vector store.
//
// Both use modernc.org/sqlite (pure Go, no cgo) and embedded migrations.
// They are kept in separate database files so the vector store can be
// discarded and rebuilt after corruption without touching the ledger.
//
//   - RecordManager: namespaced ledger of content keys (record_manager_cache.db)
//   - VectorStore: embedded chunks with brute-force cosine search (vectors.db)
package sqlite
