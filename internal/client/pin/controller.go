package pin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zktaccess/zktadmin/internal/client/client"
	"github.com/zktaccess/zktadmin/internal/client/models"
	"github.com/zktaccess/zktadmin/internal/logging"
)

var (
	ErrNoQuota        = errors.New("no PIN generations left today")
	ErrLimitReached   = errors.New("daily limit reached")
	ErrGenerateFailed = errors.New("failed to generate QR code")
	ErrInProgress     = errors.New("PIN generation already in progress")
)

// State of the PIN display.
type State int

const (
	Idle State = iota
	Generating
	Active
	Expired
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Generating:
		return "generating"
	case Active:
		return "active"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// API is the part of the backend client the controller uses.
type API interface {
	TodayCount(ctx context.Context, username string) (int, error)
	CanGenerateToday(ctx context.Context, username string, max int) (bool, error)
	GenerateQR(ctx context.Context, username string) (models.GenerateResponse, error)
	AddLog(ctx context.Context, logType, message, user string) error
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	State            State
	PIN              string
	ExpiresAt        time.Time
	RemainingSeconds int
	QuotaLeft        int
	QuotaKnown       bool
	Limit            int
}

// Result of a successful generation. Warning carries a failed audit write;
// the PIN is valid regardless.
type Result struct {
	Snapshot Snapshot
	Warning  error
}

// tickerFunc starts a ticker and returns its channel and stop function.
type tickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

type Controller struct {
	api    API
	limit  int
	logger logging.Logger

	now       func() time.Time
	newTicker tickerFunc
	notify    func(Snapshot)

	mu         sync.Mutex
	state      State
	session    models.PINSession
	remaining  int
	quotaLeft  int
	quotaKnown bool

	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Controller)

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithNotify registers fn to be called, outside the lock, after every
// countdown tick. fn must not call Reset or Close.
func WithNotify(fn func(Snapshot)) Option {
	return func(c *Controller) { c.notify = fn }
}

func withTicker(fn tickerFunc) Option {
	return func(c *Controller) { c.newTicker = fn }
}

// NewController creates a controller enforcing limit generations per day.
func NewController(api API, limit int, opts ...Option) *Controller {
	c := &Controller{
		api:       api,
		limit:     limit,
		logger:    logging.Discard(),
		now:       time.Now,
		newTicker: realTicker,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "pin")
	return c
}

// SecondsLeft is max(0, floor((expiresAt - now) / 1s)).
func SecondsLeft(expiresAt, now time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// FormatRemaining renders seconds as mm:ss.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// InitQuota loads today's count for username. A failed read counts as zero;
// only client.ErrSessionExpired is returned, after clearing the PIN.
func (c *Controller) InitQuota(ctx context.Context, username string) (int, error) {
	count, err := c.api.TodayCount(ctx, username)
	if err != nil {
		if errors.Is(err, client.ErrSessionExpired) {
			c.Reset()
			return 0, err
		}
		c.logger.Warn(ctx, "today count unavailable, assuming zero", "user", username, "err", err)
		count = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setQuotaLocked(count)
	return c.quotaLeft, nil
}

func (c *Controller) setQuotaLocked(count int) {
	c.quotaLeft = max(0, c.limit-count)
	c.quotaKnown = true
}

// Generate requests a new PIN for username.
//
// ErrNoQuota and ErrLimitReached leave the state untouched and no request
// for a PIN is made. client.ErrSessionExpired clears the PIN. Any other
// failure restores the previous state and is reported as ErrGenerateFailed.
func (c *Controller) Generate(ctx context.Context, username string) (Result, error) {
	c.mu.Lock()
	if c.state == Generating {
		c.mu.Unlock()
		return Result{}, ErrInProgress
	}
	known, left := c.quotaKnown, c.quotaLeft
	c.mu.Unlock()

	if !known {
		var err error
		if left, err = c.InitQuota(ctx, username); err != nil {
			return Result{}, err
		}
	}
	if left <= 0 {
		return Result{}, ErrNoQuota
	}

	ok, err := c.api.CanGenerateToday(ctx, username, c.limit)
	if err != nil {
		if errors.Is(err, client.ErrSessionExpired) {
			c.Reset()
		}
		return Result{}, err
	}
	if !ok {
		return Result{}, ErrLimitReached
	}

	c.mu.Lock()
	if c.state == Generating {
		c.mu.Unlock()
		return Result{}, ErrInProgress
	}
	prev := c.state
	c.state = Generating
	c.mu.Unlock()

	resp, err := c.api.GenerateQR(ctx, username)
	if err != nil {
		return Result{}, c.failGenerate(ctx, prev, err)
	}
	session, err := resp.Session()
	if err != nil {
		return Result{}, c.failGenerate(ctx, prev, err)
	}

	c.mu.Lock()
	c.session = session
	c.startCountdownLocked()
	c.mu.Unlock()

	var res Result
	msg := "Generated QR code with PIN " + session.PIN
	if err := c.api.AddLog(ctx, models.LogTypeQR, msg, username); err != nil {
		if errors.Is(err, client.ErrSessionExpired) {
			c.Reset()
			return Result{}, err
		}
		c.logger.Warn(ctx, "audit log write failed", "user", username, "err", err)
		res.Warning = fmt.Errorf("audit log: %w", err)
	}

	count, err := c.api.TodayCount(ctx, username)
	c.mu.Lock()
	switch {
	case err == nil:
		c.setQuotaLocked(count)
	case errors.Is(err, client.ErrSessionExpired):
		c.mu.Unlock()
		c.Reset()
		return Result{}, err
	default:
		c.logger.Warn(ctx, "quota refresh failed", "user", username, "err", err)
		c.quotaLeft = max(0, c.quotaLeft-1)
	}
	c.mu.Unlock()

	res.Snapshot = c.Snapshot()
	return res, nil
}

func (c *Controller) failGenerate(ctx context.Context, prev State, err error) error {
	if errors.Is(err, client.ErrSessionExpired) {
		c.Reset()
		return err
	}
	c.mu.Lock()
	if c.state == Generating {
		c.state = prev
	}
	c.mu.Unlock()
	c.logger.Error(ctx, "PIN generation failed", "err", err)
	return fmt.Errorf("%w: %w", ErrGenerateFailed, err)
}

// Snapshot returns the current state. While a PIN is shown the remaining
// time is computed from the clock, so it is exact between ticks.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:      c.state,
		PIN:        c.session.PIN,
		ExpiresAt:  c.session.ExpiresAt,
		QuotaLeft:  c.quotaLeft,
		QuotaKnown: c.quotaKnown,
		Limit:      c.limit,
	}
	if c.state == Active {
		s.RemainingSeconds = SecondsLeft(c.session.ExpiresAt, c.now())
		if s.RemainingSeconds == 0 {
			s.State = Expired
		}
	}
	return s
}

// Reset stops the countdown and forgets the PIN and quota, e.g. on logout.
func (c *Controller) Reset() {
	c.mu.Lock()
	done := c.stopCountdownLocked()
	c.state = Idle
	c.session = models.PINSession{}
	c.remaining = 0
	c.quotaLeft = 0
	c.quotaKnown = false
	c.mu.Unlock()
	wait(done)
}

// Close stops the countdown goroutine and waits for it to exit.
func (c *Controller) Close() error {
	c.mu.Lock()
	done := c.stopCountdownLocked()
	c.mu.Unlock()
	wait(done)
	return nil
}

func wait(done chan struct{}) {
	if done != nil {
		<-done
	}
}
