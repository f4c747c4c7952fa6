// Package domain defines the core error model for respkv.
//
// Every failure the protocol core can produce is a *DomainError carrying a
// code of the form KV-<CATEGORY>-<NNNN>:
//
//   - PROTO: malformed wire input (ProtocolError)
//   - CMD: unknown command or wrong argument count (CommandError)
//   - VAL: unusable argument value such as a bad TTL (ValueError)
//
// Errors compare by code with errors.Is, so wrapped or detailed copies still
// match their sentinel.
package domain
