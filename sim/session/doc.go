// Package session provides in-memory storage for live simulations.
//
// Manager keeps one service.Session per id. Ids are case-insensitive and,
// when not supplied, are the first characters of a random UUID. Sessions
// are never written to disk; they live until deleted or until
// CleanupExpiredSessions drops them for inactivity.
//
// The manager is safe for concurrent use. It does not lock the simulations
// it stores; the service layer does that per session.
package session
