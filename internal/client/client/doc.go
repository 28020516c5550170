// Package client talks to the access-control backend over HTTP/JSON.
//
// # Overview
//
// HTTPClient.Do is the single request primitive: it attaches the JSON
// content type, the bearer token from the session store and a request id,
// paces requests, decodes JSON responses and translates failures. Every
// backend call (login, user administration, audit log, PIN generation,
// daily quota) is a thin method on top of it; see Client for the full
// surface.
//
// # Error Handling
//
// Failures are exposed as sentinel errors matched with errors.Is:
//
//   - ErrSessionExpired: the backend rejected the token as expired. The
//     session store has already been cleared; callers abandon the flow and
//     return to the login view.
//   - ErrRequestFailed: any other non-2xx answer. The concrete *RequestError
//     carries the status and the raw response text.
//   - ErrUnavailable: the backend could not be reached.
//
// The expired-token condition is detected by matching the response text
// (the backend reports it only as a message); that match lives in
// translateError and nowhere else.
package client
