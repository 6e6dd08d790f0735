// Package admincli provides dovolctl, the operator console for a Dovol
// deployment.
//
// It talks to the database directly rather than through the gRPC API, so it
// can bootstrap the first admin account and inspect or clean up one-time
// codes while the server is running or stopped.
//
// Commands:
//   - create-admin: create an admin account (password read without echo)
//   - otps [n]: list the newest codes
//   - active [n]: list unused, unexpired codes
//   - find <email>: list codes issued to one address
//   - stats: counts by state
//   - delete <id>: remove a single code
//   - purge-expired / purge-all: delete codes after confirmation
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package admincli
