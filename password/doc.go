// Package password implements password hashing, verification and strength
// policy for credauth.
//
// # Output format
//
// Hashes are PHC strings returned as bytes:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// The salt is stored inside the hash. [Argon2.NeedsUpgrade] reports hashes made
// with weaker parameters so the caller can rehash after the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other credauth package.
//   - Log plaintext passwords.
package password
