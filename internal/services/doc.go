// Package services implements HTTP clients for the local download sidecar.
//
// # Engine
//
// [EngineClient] talks to the download engine: it starts jobs, reports job status snapshots and deletes jobs.
// Transport failures wrap [shared.ErrExternalUnavailable]; non-2xx replies decode the FastAPI
// {"detail": "..."} body and wrap [shared.ErrEngineRejected].
//
// # Lookup
//
// [LookupClient] searches the song catalog by anime title. An optional token is sent as the token query
// parameter and as an OAuth2 bearer credential through [oauth2.StaticTokenSource].
//
// # Health
//
// [HealthMonitor] polls the engine health endpoint and tracks transitions between healthy and unhealthy.
package services
