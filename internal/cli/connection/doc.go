// Package connection talks to a respkv server.
//
// Client speaks RESP over TCP for data commands. HTTPClient reads the ops
// endpoint (/health).
package connection
