// Package api implements the HTTP REST API and WebSocket server for SmartEgg Core.
//
// This package provides:
//   - REST endpoints for accounts, incubations, sensor readings, actuators and alerts
//   - The sensor ingest endpoint, authenticated by the shared board API key
//   - A WebSocket hub whose clients join per-incubation rooms on the realtime broker
//   - JWT bearer authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Ownership
//
// Every session-scoped route resolves incubations through owner-scoped
// repository calls, so another user's incubation is reported as 404 rather
// than 403.
//
// # Security
//
// WebSocket connections use single-use tickets obtained from
// POST /api/v1/auth/ws-ticket so the session token never appears in a URL.
package api
