// Package migrations embeds the SQL schema migrations for the Postgres
// bucket registry, applied via golang-migrate/v4's iofs source driver.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
