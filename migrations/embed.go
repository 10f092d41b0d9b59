// Package migrations embeds the goose migration files so the server and
// the integration tests run the same schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
