// Package access decides who may enter or extend a room.
// Decisions are pure functions of a single Room snapshot; callers are
// responsible for holding the room lock while reading and acting on it.
package access

import "roomchat/domain"

// CanJoin reports whether userID may subscribe to the room.
// Public rooms are open to everyone, private rooms only to their members.
func CanJoin(room domain.Room, userID domain.UserID) bool {
	if !room.IsPrivate {
		return true
	}
	return room.HasMember(userID)
}

// CanAddMember reports whether requester may add another user to the room.
func CanAddMember(room domain.Room, requester domain.UserID) bool {
	if !room.IsPrivate {
		return true
	}
	return room.HasMember(requester)
}
