// Package store is the relational source of truth for rooms and their
// participants, backed by gorm.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const participantsTable = "room_participants"

type Store struct {
	db *gorm.DB
}

// Open connects to a sqlite DSN and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&User{}, &Room{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("module", "adapters.store").Str("dsn", dsn).Msg("store ready")
	return &Store{db: db}, nil
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) CreateRoom(ctx context.Context, r *Room) error {
	if err := s.db.WithContext(ctx).Omit("Participants").Create(r).Error; err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, uid domain.UserID) (*domain.User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, int64(uid)).Error; err != nil {
		return nil, notFound(err, "user %d", uid)
	}
	return &domain.User{ID: domain.UserID(u.ID), DisplayName: u.DisplayName, Avatar: u.Avatar}, nil
}

func (s *Store) FindRoomByTitle(ctx context.Context, title string) (*domain.Room, error) {
	return s.findRoom(s.db.WithContext(ctx), "title = ?", title)
}

func (s *Store) FindRoomByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return s.findRoom(s.db.WithContext(ctx), "id = ?", int64(id))
}

func (s *Store) findRoom(tx *gorm.DB, query string, arg any) (*domain.Room, error) {
	var r Room
	if err := tx.Where(query, arg).First(&r).Error; err != nil {
		return nil, notFound(err, "room %v", arg)
	}
	var n int64
	if err := tx.Table(participantsTable).Where("room_id = ?", r.ID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	return &domain.Room{
		ID:           domain.RoomID(r.ID),
		Title:        r.Title,
		HostID:       domain.UserID(r.HostID),
		Capacity:     r.Capacity,
		Participants: int(n),
		Key:          r.Key,
	}, nil
}

// JoinRoom adds uid to the room after checking the user is in no other
// room, the key matches and the room has space. Validation failures wrap
// domain.ErrForbidden.
func (s *Store) JoinRoom(ctx context.Context, room *domain.Room, uid domain.UserID, key string) (*domain.Room, error) {
	var out *domain.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&User{}, int64(uid)).Error; err != nil {
			return fmt.Errorf("user %d: %v: %w", uid, err, domain.ErrForbidden)
		}
		var elsewhere int64
		if err := tx.Table(participantsTable).Where("user_id = ?", int64(uid)).Count(&elsewhere).Error; err != nil {
			return err
		}
		if elsewhere > 0 {
			return fmt.Errorf("user %d already in a room: %w", uid, domain.ErrForbidden)
		}
		current, err := s.findRoom(tx, "id = ?", int64(room.ID))
		if err != nil {
			return err
		}
		if current.Locked() && current.Key != key {
			return fmt.Errorf("room %d: wrong key: %w", room.ID, domain.ErrForbidden)
		}
		if current.Participants >= current.Capacity {
			return fmt.Errorf("room %d is full: %w", room.ID, domain.ErrForbidden)
		}
		if err := tx.Exec("INSERT INTO "+participantsTable+" (room_id, user_id) VALUES (?, ?)", int64(room.ID), int64(uid)).Error; err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
		current.Participants++
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LeaveRoom removes uid from the room. Leaving a room the user is not in
// wraps domain.ErrForbidden.
func (s *Store) LeaveRoom(ctx context.Context, room *domain.Room, uid domain.UserID) (*domain.Room, error) {
	var out *domain.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec("DELETE FROM "+participantsTable+" WHERE room_id = ? AND user_id = ?", int64(room.ID), int64(uid))
		if res.Error != nil {
			return fmt.Errorf("delete participant: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %d not in room %d: %w", uid, room.ID, domain.ErrForbidden)
		}
		current, err := s.findRoom(tx, "id = ?", int64(room.ID))
		if err != nil {
			return err
		}
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParticipantsOf lists the user ids persisted as members of a room.
func (s *Store) ParticipantsOf(ctx context.Context, id domain.RoomID) ([]domain.UserID, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Table(participantsTable).
		Where("room_id = ?", int64(id)).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("participants of %d: %w", id, err)
	}
	out := make([]domain.UserID, len(ids))
	for i, v := range ids {
		out[i] = domain.UserID(v)
	}
	return out, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, domain.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
