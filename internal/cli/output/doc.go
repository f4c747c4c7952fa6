// Package output formats respkv-cli results.
//
// Formats:
//
//   - raw: redis-cli style text, one value per line
//   - json: indented JSON
//   - yaml: YAML via gopkg.in/yaml.v3
package output
