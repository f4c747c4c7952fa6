// Package buildinfo reports the version of the running respkv binary.
//
// Release builds inject values via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/respkv/internal/infra/buildinfo.Version=v0.1.0 \
//	    -X github.com/yndnr/respkv/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// Without ldflags, Commit and BuildTime fall back to the VCS stamp the Go
// toolchain embeds, when present.
package buildinfo
