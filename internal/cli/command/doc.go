// Package command defines the respkv-cli command tree on urfave/cli/v2.
//
// Subcommands (ping, echo, get, set) wrap single requests. Any other first
// word is sent to the server verbatim, so "respkv-cli SET k v" behaves like
// redis-cli. With no arguments the CLI starts an interactive session.
package command
