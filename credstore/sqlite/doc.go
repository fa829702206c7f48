// Package sqlite implements credauth.CredentialStore on SQLite through the
// pure-Go modernc.org/sqlite driver. It suits single-node deployments and
// development.
package sqlite
