package models

import "time"

// GenerateRequest is the body of POST /generate-qr.
type GenerateRequest struct {
	Username string `json:"username"`
}

// GenerateResponse carries the PIN and its expiry as a zone-less UTC string.
type GenerateResponse struct {
	PIN       string `json:"pin"`
	ExpiresAt string `json:"expires_at"`
}

// PINSession is a generated code together with its parsed expiry.
type PINSession struct {
	PIN       string
	ExpiresAt time.Time
}

// Session converts the wire response into a PINSession.
func (r GenerateResponse) Session() (PINSession, error) {
	exp, err := ParseNaiveUTC(r.ExpiresAt)
	if err != nil {
		return PINSession{}, err
	}
	return PINSession{PIN: r.PIN, ExpiresAt: exp}, nil
}

// CountResponse is returned by GET /user-qr-count/{username}.
type CountResponse struct {
	Count int `json:"count"`
}
