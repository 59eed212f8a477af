// Package scoreboard wires the score state, display, input pipeline, backend
// stream, publisher and status server into one runnable service.
package scoreboard

const Version = "0.1.0"
