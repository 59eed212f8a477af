// Package session owns the stream transport to the scoreboard backend.
//
// Ownership boundary:
// - websocket dial/read/write with per-operation deadlines
// - reconnect with backoff
// - client TLS for wss endpoints
//
// Frame semantics live in the parent protocol package; this package only
// moves text frames between the socket and a Handler.
package session
