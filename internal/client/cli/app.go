package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/zktaccess/zktadmin/internal/client/client"
	"github.com/zktaccess/zktadmin/internal/client/config"
	"github.com/zktaccess/zktadmin/internal/client/guard"
	"github.com/zktaccess/zktadmin/internal/client/logfilter"
	"github.com/zktaccess/zktadmin/internal/client/models"
	"github.com/zktaccess/zktadmin/internal/client/pin"
	"github.com/zktaccess/zktadmin/internal/client/qr"
	"github.com/zktaccess/zktadmin/internal/client/services"
	"github.com/zktaccess/zktadmin/internal/logging"
)

// SessionStore is the session access the console needs.
type SessionStore interface {
	CurrentUser(ctx context.Context) (models.Identity, bool)
	Token(ctx context.Context) (string, bool)
	Clear(ctx context.Context) error
}

// Deps are the collaborators of an App. In and Out default to the process
// stdin and stdout, Location to time.Local and Renderer to a terminal QR
// renderer.
type Deps struct {
	Config   *config.Config
	Sessions SessionStore
	Client   client.Client
	Renderer qr.Renderer
	Logger   logging.Logger
	In       io.Reader
	Out      io.Writer
	Location *time.Location
}

type App struct {
	config   *config.Config
	sessions SessionStore
	guard    *guard.Guard
	auth     services.AuthService
	admin    services.AdminService
	logs     services.LogService
	pins     *pin.Controller
	qr       qr.Renderer
	logger   logging.Logger
	loc      *time.Location

	reader *bufio.Reader
	out    io.Writer

	view    guard.Route
	users   []models.User
	entries []models.LogEntry
	query   logfilter.Query
}

// syncWriter serialises writes from the REPL and the countdown goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func NewApp(d Deps) *App {
	if d.In == nil {
		d.In = os.Stdin
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Renderer == nil {
		d.Renderer = qr.NewTerminalRenderer()
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}

	a := &App{
		config:   d.Config,
		sessions: d.Sessions,
		guard:    guard.New(d.Sessions),
		auth:     services.NewAuthService(d.Client, d.Sessions, d.Logger),
		admin:    services.NewAdminService(d.Client, d.Sessions, d.Logger),
		logs:     services.NewLogService(d.Client, d.Location, d.Logger),
		qr:       d.Renderer,
		logger:   d.Logger.With("component", "cli"),
		loc:      d.Location,
		reader:   bufio.NewReader(d.In),
		out:      &syncWriter{w: d.Out},
		view:     guard.Login,
	}
	a.pins = pin.NewController(d.Client, d.Config.DailyLimit,
		pin.WithLogger(d.Logger),
		pin.WithNotify(a.onTick),
	)
	return a
}

// Run shows the welcome banner, resumes a stored session if there is one and
// runs the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	defer a.pins.Close()

	a.println("Welcome to the zktadmin console (type 'help' for commands)")
	if id, ok := a.sessions.CurrentUser(ctx); ok {
		a.printf("Resuming session of %s (%s)\n", id.Username, id.Role)
		if err := a.Go(ctx, string(guard.Landing(id))); err != nil {
			a.fail(ctx, err)
		}
	} else {
		a.println("Please log in.")
	}

	runREPL(ctx, a, a.status, a.reader)
	return nil
}

// Close stops background work.
func (a *App) Close() error {
	return a.pins.Close()
}

func (a *App) status() string {
	s := string(a.view)
	if id, ok := a.sessions.CurrentUser(context.Background()); ok {
		s = fmt.Sprintf("%s@%s", id.Username, s)
	}
	return s
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) confirm(prompt string) bool {
	return Confirm(a.reader, prompt, a.out)
}

// warn prints the audit warning of a completed action, if any.
func (a *App) warn(err error) {
	if err != nil {
		a.printf("Warning: the action succeeded but was not recorded in the audit log (%s)\n", client.Describe(err))
	}
}

// onTick is called by the PIN countdown goroutine.
func (a *App) onTick(s pin.Snapshot) {
	if s.State == pin.Expired {
		a.printf("\nPIN %s has expired. Use 'generate' for a new one.\n", s.PIN)
	}
}
