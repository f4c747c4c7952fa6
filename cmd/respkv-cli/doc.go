// Package main provides the entry point for respkv-cli.
//
// respkv-cli sends single commands to a respkv server or, with no
// arguments, opens an interactive session:
//
//	respkv-cli ping
//	respkv-cli set --ex 60 greeting hello
//	respkv-cli get greeting
//	respkv-cli -o json health
//	respkv-cli
package main
