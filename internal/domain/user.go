// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"fmt"
	"strconv"
)

const MaxDisplayNameLen = 64

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

type UserID int64

func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseUserID reads a user id from a path segment.
func ParseUserID(s string) (UserID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("user id %q: %w", s, ErrNotFound)
	}
	return UserID(v), nil
}

type User struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id UserID, displayName, avatar string) (*User, error) {
	if len(displayName) == 0 {
		return nil, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	return &User{ID: id, DisplayName: displayName, Avatar: avatar}, nil
}
