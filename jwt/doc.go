// Package jwt signs and verifies short-lived identity tokens that describe
// an authenticated session to relying parties. Tokens carry the subject,
// session id and display name, and never outlive their session.
package jwt
