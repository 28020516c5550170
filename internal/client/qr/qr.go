// Package qr turns PIN payloads into scannable QR codes for the terminal.
package qr

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

var ErrEmptyContent = errors.New("nothing to encode")

// Renderer maps a string onto a scannable image.
type Renderer interface {
	Render(content string) (string, error)
}

// TerminalRenderer draws QR codes with Unicode half blocks.
type TerminalRenderer struct {
	Level qrcode.RecoveryLevel
	// Inverse swaps dark and light modules for light-on-dark terminals.
	Inverse bool
}

func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{Level: qrcode.Medium}
}

func (r *TerminalRenderer) Render(content string) (string, error) {
	if content == "" {
		return "", ErrEmptyContent
	}
	code, err := qrcode.New(content, r.Level)
	if err != nil {
		return "", err
	}
	return code.ToSmallString(r.Inverse), nil
}

// PNG encodes content as a PNG image of size pixels per side.
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
