package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zktaccess/zktadmin/internal/client/guard"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	enter(ctx context.Context, route guard.Route) bool
	fail(ctx context.Context, err error)
	help(ctx context.Context)

	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Go(ctx context.Context, target string) error

	Generate(ctx context.Context) error
	ShowPIN(ctx context.Context) error
	Quota(ctx context.Context) error
	SavePNG(ctx context.Context, path string) error

	Users(ctx context.Context) error
	AddUser(ctx context.Context) error
	Toggle(ctx context.Context, username string) error
	ResetPassword(ctx context.Context, username string) error
	ResetLimit(ctx context.Context, username string) error
	DeleteUser(ctx context.Context, username string) error

	Logs(ctx context.Context, args []string) error
	LogUsers(ctx context.Context) error
	ClearLogs(ctx context.Context) error
}

// commandViews maps view commands to the route they belong to. Running one
// of them first enters that view through the guard.
var commandViews = map[string]guard.Route{
	"generate":   guard.Dashboard,
	"pin":        guard.Dashboard,
	"quota":      guard.Dashboard,
	"savepng":    guard.Dashboard,
	"users":      guard.Admin,
	"adduser":    guard.Admin,
	"toggle":     guard.Admin,
	"resetpw":    guard.Admin,
	"resetlimit": guard.Admin,
	"deluser":    guard.Admin,
	"logs":       guard.Logs,
	"logusers":   guard.Logs,
	"clearlogs":  guard.Logs,
}

// needsUser lists the commands taking a username argument.
var needsUser = map[string]bool{
	"toggle":     true,
	"resetpw":    true,
	"resetlimit": true,
	"deluser":    true,
	"savepng":    true,
}

// runREPL starts a simple read-eval-print loop for the zktadmin console.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF or when the user types "exit" or "quit".
//
// Commands
//
//	Everywhere:
//	  - help                 show available commands
//	  - login | logout       sign in / sign out
//	  - whoami               show the signed-in account
//	  - go <view>            switch to dashboard, admin or logs
//	  - exit | quit          leave the program
//
//	Dashboard:
//	  - generate             generate a new PIN
//	  - pin                  show the current PIN, QR code and countdown
//	  - quota                show today's remaining generations
//	  - savepng <file>       save the current QR code as PNG
//
//	Admin:
//	  - users                list accounts
//	  - adduser              create an account
//	  - toggle <user>        enable or disable an account
//	  - resetpw <user>       set a new password
//	  - resetlimit <user>    reset today's PIN count (asks for confirmation)
//	  - deluser <user>       delete an account (asks for confirmation)
//
//	Logs:
//	  - logs [-u user] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-reset] [-refresh]
//	  - logusers             list the usernames present in the log
//	  - clearlogs            delete every log entry (asks for confirmation)
//
// Errors returned by command handlers are passed to a.fail, which reports
// them and handles session expiry. This keeps the loop focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("zkt (%s)> ", statusFn()))
		line, readErr := reader.ReadString('\n')
		if readErr != nil && (!errors.Is(readErr, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		if needsUser[cmd] && len(args) == 0 {
			printlnFn(fmt.Sprintf("Usage: %s <%s>", cmd, argName(cmd)))
			continue
		}
		if view, ok := commandViews[cmd]; ok && !a.enter(ctx, view) {
			continue
		}

		var err error
		switch cmd {
		case "help":
			a.help(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "whoami":
			err = a.WhoAmI(ctx)
		case "go":
			if len(args) == 0 {
				printlnFn("Usage: go <dashboard|admin|logs>")
				continue
			}
			err = a.Go(ctx, args[0])

		case "generate":
			err = a.Generate(ctx)
		case "pin":
			err = a.ShowPIN(ctx)
		case "quota":
			err = a.Quota(ctx)
		case "savepng":
			err = a.SavePNG(ctx, args[0])

		case "users":
			err = a.Users(ctx)
		case "adduser":
			err = a.AddUser(ctx)
		case "toggle":
			err = a.Toggle(ctx, args[0])
		case "resetpw":
			err = a.ResetPassword(ctx, args[0])
		case "resetlimit":
			err = a.ResetLimit(ctx, args[0])
		case "deluser":
			err = a.DeleteUser(ctx, args[0])

		case "logs":
			err = a.Logs(ctx, args)
		case "logusers":
			err = a.LogUsers(ctx)
		case "clearlogs":
			err = a.ClearLogs(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
			continue
		}

		if err != nil {
			a.fail(ctx, err)
		}
	}
}

func argName(cmd string) string {
	if cmd == "savepng" {
		return "file"
	}
	return "username"
}
