// Package server exposes the task catalog over a local HTTP API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /api/tasks"), so path wildcards
// such as {id} are available through [http.Request.PathValue].
//
// # Task Handler
//
// [TaskHandler] serves the task boundary as JSON:
//
//	GET    /api/tasks               reconcile with the engine and list active tasks
//	GET    /api/history             list archived tasks
//	POST   /api/tasks/batch         create tasks from titles
//	POST   /api/tasks/{id}/start    start a download
//	POST   /api/tasks/{id}/archive  move a finished task to history
//	DELETE /api/tasks/{id}          delete a task
//	GET    /api/engine/health       report the engine health monitor state
//
// Start and delete always answer 202: failures surface as task state, not as HTTP errors.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
