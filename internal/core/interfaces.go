package core

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_core.go -package=mocks

import (
	"context"

	"github.com/dkeye/Lounge/internal/domain"
)

// Authorizer resolves a connection credential (access token) to a user id.
type Authorizer interface {
	ResolveUserID(ctx context.Context, credential string) (domain.UserID, bool)
}

// RoomStore is the authoritative room/membership store.
// Validation failures wrap domain.ErrForbidden, unknown rooms domain.ErrNotFound.
type RoomStore interface {
	FindRoomByTitle(ctx context.Context, title string) (*domain.Room, error)
	FindRoomByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	// JoinRoom validates capacity, lock key and "already elsewhere" and returns the refreshed room.
	JoinRoom(ctx context.Context, room *domain.Room, uid domain.UserID, key string) (*domain.Room, error)
	LeaveRoom(ctx context.Context, room *domain.Room, uid domain.UserID) (*domain.Room, error)
}

type UserStore interface {
	FindUser(ctx context.Context, uid domain.UserID) (*domain.User, error)
}

// SignalValidator checks WebRTC negotiation payloads before they are relayed.
type SignalValidator interface {
	ValidateSignal(domain.Event) error
}
