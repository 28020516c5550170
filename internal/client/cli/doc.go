// Package cli provides the interactive zktadmin console.
//
// The console is a REPL with four views: login, dashboard (PIN generation),
// admin (user management) and logs (audit log). Every view command passes
// through the route guard first; a command the current session may not run
// redirects to the view the guard picks instead.
//
// When the backend reports an expired session, whatever the command was, the
// console drops the PIN, prints a notice and returns to the login view.
// Destructive admin actions ask for a y/N confirmation before any request.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
