// Package cli provides the interactive authkeeper command-line client.
//
// The App receives an already constructed session manager, resolves the
// session on start and then runs a small REPL on top of it. Every state the
// session publishes goes through a subscription, so sign-in errors and
// transitions are reported no matter which command triggered them.
//
// Commands:
//   - help             show available commands
//   - register         create an account and sign in
//   - login            sign in with email and password
//   - logout           sign out and forget the stored credential
//   - whoami           print the signed-in user
//   - status           print session status and access expiry
//   - clear            dismiss the last error
//   - exit | quit      leave the program
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
