package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
	ErrBadCommand   = errors.New("bad command")
)

const (
	CodeForbidden = 403
	CodeNotFound  = 404
)

// CloseCode maps a refused connection attempt to the code surfaced to the client.
func CloseCode(err error) int {
	if errors.Is(err, ErrNotFound) {
		return CodeNotFound
	}
	return CodeForbidden
}

// WSCloseCode is the websocket close code used once the socket has been accepted;
// 4xxx is the application range.
func WSCloseCode(code int) int { return 4000 + code }
