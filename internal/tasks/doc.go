// Package tasks keeps the local task catalog in step with the download engine.
//
// # Operations
//
// [Manager] is the boundary the CLI, the HTTP server and the dashboard call:
//
//  1. [Manager.ListActive] : reconcile with the engine, then return the active tasks
//     - Engine status overwrites status, progress and error message of known tasks
//     - Unknown engine jobs are ignored; the active set only grows through CreateBatch
//     - An unreachable engine yields the cached list unchanged
//
//  2. [Manager.CreateBatch] : expand titles into pending tasks via the catalog lookup
//     - k matches yield k tasks; zero matches or a lookup error yield one fallback task
//     - Lookups run on a bounded worker pool behind a rate limiter; results keep input order
//
//  3. [Manager.StartDownload] : mark a task downloading and ask the engine to start it
//     - A failed start marks the task failed with the error message
//
//  4. [Manager.DeleteTask] and [Manager.ArchiveTask] : remove a task, or move a terminal task to history
//
// # Persistence
//
// State-defining transitions (creation, deletion, archival, downloading, completed, failed) flush the active
// document immediately. Progress-only changes go through the debounced scheduler and may be lost if the process
// dies inside the quiescence window.
//
// # Progress Reporting
//
// [Manager.CreateBatch] reports [ProgressUpdate] values on an optional channel.
// Updates use select with default to prevent blocking.
package tasks
