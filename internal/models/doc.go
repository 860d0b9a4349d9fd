// Package models defines the download task record shared by the cache, the durable documents and the boundaries.
//
// A [Task] is split into two groups of fields:
//
// 1. Locally owned: identity and request data set once at creation
//   - ID, AnimeTitle, TargetDir, Source, DownloadMode, Metadata, CustomKeywords, CreatedAt
//
// 2. Remotely owned: execution state reported by the download engine
//   - Status, Progress, ErrorMessage, UpdatedAt
//
// [Status] values form a small state machine: pending -> downloading -> completed | failed.
// Completed and failed are terminal and are the only states eligible for archival.
package models
