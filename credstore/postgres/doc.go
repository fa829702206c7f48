// Package postgres implements credauth.CredentialStore on PostgreSQL via
// pgx. Usernames are unique case-insensitively through a unique index on
// lower(username); a record and its initial claims are written in one
// transaction.
package postgres
