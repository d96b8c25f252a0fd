package domain

import "fmt"

// Group is a named broadcast domain. It exists only while connections reference it.
type Group string

const RoomListGroup Group = "room-list"

func RoomGroup(id RoomID) Group { return Group(fmt.Sprintf("room-%d", id)) }

func NotificationGroup(uid UserID) Group { return Group(fmt.Sprintf("notification-%d", uid)) }

func ProfileGroup(uid UserID) Group { return Group(fmt.Sprintf("profile-%d", uid)) }
