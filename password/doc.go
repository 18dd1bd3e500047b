// Package password hashes credentials and holds the length policy for new passwords.
//
// New hashes are argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher] additionally verifies the "<salt>:<key>" scrypt hashes found in accounts
// created before authgate took over the table, and flags them for rehashing.
//
// The package never stores or logs plaintext and imports no other authgate package.
package password
