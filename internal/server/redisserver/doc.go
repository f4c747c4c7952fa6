// Package redisserver serves a RESP2 subset over TCP.
//
// The package has three layers:
//
//   - resp.go: decoding of requests and encoding of replies
//   - command.go: dispatch of PING, ECHO, GET and SET against a Store
//   - server.go: the listener and one session goroutine per connection
//
// Command names match exactly (case-sensitive). Every failure is answered
// with the same "-ERR\r\n" reply; the error code is only visible in logs
// and metrics. A session survives malformed input and ends on EOF, I/O
// errors, timeouts or protocol limit violations.
package redisserver
