// Package migrations embebe los SQL de schema para aplicarlos con
// goose al arrancar.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
