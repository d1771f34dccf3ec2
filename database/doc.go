// Package database provides connection management, migrations of the
// registered models, foreign key installation, query logging hooks, SQL
// error classification and health checks built on top of Bun.
package database
