// Package pin drives the one-time PIN lifecycle of the dashboard: daily
// quota, generation, countdown until expiry.
//
// A Controller moves through Idle → Generating → Active → (Generating |
// Expired). Generation is gated twice: on the locally known quota and on a
// fresh CanGenerateToday check right before the request, since another
// session may have used the quota meanwhile. The backend stays the
// authority on both the limit and the expiry; local values only drive the
// display.
//
// The countdown runs in its own goroutine. Each countdown carries a
// generation number; a tick whose generation is no longer current is
// dropped, so a superseded or cancelled countdown can never touch state.
package pin
