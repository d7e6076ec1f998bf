// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// engine can re-hash on the next successful login.
//
// Length policy lives here ([Argon2.CheckPolicy]); everything else about
// accounts is the engine's concern. Plaintext is never logged.
package password
