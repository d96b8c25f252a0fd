package domain

import "strconv"

type RoomID int64

func (id RoomID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseRoomID reads a room id from a path segment.
func ParseRoomID(s string) (RoomID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrNotFound
	}
	return RoomID(v), nil
}

// Room is the authoritative room record as seen by the live layer.
// Participants is the persisted occupancy at the time the record was read.
type Room struct {
	ID           RoomID `json:"id"`
	Title        string `json:"title"`
	HostID       UserID `json:"host"`
	Capacity     int    `json:"number_of_participants"`
	Participants int    `json:"participants"`
	Key          string `json:"-"`
}

func (r *Room) IsHost(uid UserID) bool { return r.HostID == uid }

func (r *Room) Locked() bool { return r.Key != "" }

func (r *Room) Group() Group { return RoomGroup(r.ID) }
