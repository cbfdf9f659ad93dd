// Package auth manages SmartEgg accounts.
//
// It provides:
//   - Argon2id password hashing stored as PHC strings
//   - HS256 JWT session tokens carrying the user id as subject
//   - A SQLite user repository, including the Telegram lookups the
//     notification layer uses to resolve chats
//
// Every incubation belongs to exactly one user, so the user id from a
// verified token is the only authorisation input the rest of the core needs.
package auth
