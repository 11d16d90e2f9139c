// Package database provides connection pool management for the archive
// PostgreSQL instance.
package database
