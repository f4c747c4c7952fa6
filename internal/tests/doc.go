// Package tests holds end-to-end tests that run the RESP server, the local
// socket listener, the ops endpoint and the CLI client together.
package tests
