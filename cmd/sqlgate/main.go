// Package main provides the sqlgate command line tool.
//
// The CLI supports:
//   - compile: Render a request document to SQL and parameters
//   - validate: Check a JSON filter against the configured policy
//   - query: Run a request against PostgreSQL or SQLite
//   - cursor: Encode and decode pagination cursors
//
// Usage:
//
//	sqlgate [flags] <command>
//
// Only query needs database access; it reads database settings from
// sqlgate.yaml, SQLGATE_* environment variables or --db.
package main

func main() {
	Execute()
}
