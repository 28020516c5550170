package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/zktaccess/zktadmin/internal/client/pin"
	"github.com/zktaccess/zktadmin/internal/client/qr"
)

const pngSize = 256

// Quota loads and prints today's remaining PIN generations.
func (a *App) Quota(ctx context.Context) error {
	id, _ := a.sessions.CurrentUser(ctx)
	left, err := a.pins.InitQuota(ctx, id.Username)
	if err != nil {
		return err
	}
	a.printf("PIN generations left today: %d / %d\n", left, a.config.DailyLimit)
	return nil
}

// Generate requests a new PIN and shows it.
func (a *App) Generate(ctx context.Context) error {
	id, _ := a.sessions.CurrentUser(ctx)
	a.println("Generating PIN...")

	res, err := a.pins.Generate(ctx, id.Username)
	switch {
	case errors.Is(err, pin.ErrNoQuota), errors.Is(err, pin.ErrLimitReached):
		a.printf("Daily limit reached (%d per day). Try again tomorrow.\n", a.config.DailyLimit)
		return nil
	case errors.Is(err, pin.ErrGenerateFailed):
		a.logger.Warn(ctx, "generate failed", "err", err)
		a.println("Failed to generate QR code. Please try again.")
		return nil
	case err != nil:
		return err
	}

	a.warn(res.Warning)
	a.renderPIN(res.Snapshot)
	return nil
}

// ShowPIN prints the current PIN with its QR code and countdown.
func (a *App) ShowPIN(ctx context.Context) error {
	s := a.pins.Snapshot()
	switch s.State {
	case pin.Idle:
		a.println("No PIN generated yet. Use 'generate'.")
	case pin.Generating:
		a.println("A PIN is being generated...")
	case pin.Expired:
		a.printf("PIN %s expired at %s. Use 'generate' for a new one.\n", s.PIN, a.clock(s.ExpiresAt))
	case pin.Active:
		a.renderPIN(s)
	}
	return nil
}

// SavePNG writes the QR code of the active PIN to path.
func (a *App) SavePNG(ctx context.Context, path string) error {
	s := a.pins.Snapshot()
	if s.State != pin.Active {
		a.println("No active PIN to save.")
		return nil
	}
	b, err := qr.PNG(s.PIN, pngSize)
	if err != nil {
		return fmt.Errorf("encode QR code: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("save QR code: %w", err)
	}
	a.printf("QR code saved to %s\n", path)
	return nil
}

func (a *App) renderPIN(s pin.Snapshot) {
	if s.State == pin.Expired {
		a.printf("PIN %s has already expired.\n", s.PIN)
		return
	}
	if code, err := a.qr.Render(s.PIN); err == nil {
		a.println(code)
	} else {
		a.logger.Warn(context.Background(), "render QR code failed", "err", err)
	}
	a.printf("PIN: %s\n", s.PIN)
	a.printf("Valid for %d minutes, expires at %s (%s left)\n",
		int(a.config.PINValidity/time.Minute), a.clock(s.ExpiresAt), pin.FormatRemaining(s.RemainingSeconds))
	if s.QuotaKnown {
		a.printf("PIN generations left today: %d / %d\n", s.QuotaLeft, s.Limit)
	}
}

// clock formats t in the console's time zone.
func (a *App) clock(t time.Time) string {
	return t.In(a.loc).Format("15:04:05")
}
