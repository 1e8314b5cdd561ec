// Package accounts implements email/password account management: signup,
// email confirmation, and sign-in with signed JWT sessions.
//
// Lifecycle:
//   - Signup creates a pending account and mails a confirmation link. The
//     confirmation token is a short-lived JWT carrying a dedicated purpose
//     claim, so no server-side token table is needed.
//   - ConfirmEmail flips the account to active. Re-confirming an already
//     active account succeeds again, so a double-clicked link never errors.
//   - SignIn verifies credentials and issues an auth token. Unknown addresses
//     and wrong passwords return the same generic failure, and the
//     missing-account path burns an equivalent bcrypt comparison so response
//     timing does not leak which addresses are registered.
//
// Storage is a Bun repository over SQLite or Postgres; uniqueness of the
// normalized email lives in the schema, and the store only translates the
// constraint violation into the duplicate-email error. Components accept the
// narrow Logger, Mailer, and Config interfaces declared in types.go, so
// callers can wire their own implementations.
package accounts
