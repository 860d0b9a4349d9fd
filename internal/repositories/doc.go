// Package repositories keeps the task catalog in memory and persists it as JSON documents.
//
// Key Implementations:
//   - [TaskCache] : The authoritative in-memory list of active tasks, keyed by id and kept in creation order
//   - [PersistenceScheduler] : Debounced writes of the active document, with forced flushes for critical transitions
//   - [HistoryArchive] : Append-only archive of finished tasks, written through on every append
//   - [FileDocumentStore] : tasks.json and history.json in a data directory, replaced atomically
//   - [SQLiteDocumentStore] : The same two documents as rows of a SQLite table
//
// A [DocumentStore] stores whole documents; nothing is written incrementally.
package repositories
