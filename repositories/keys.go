package repositories

import (
	"fmt"
	"roomchat/domain"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Key layout. Numbers are zero padded to 19 digits so that the
// lexicographical order of badger keys is the numerical order.
//
//	user:{id}                 -> userRecord
//	username:{username}       -> user id
//	room:{id}                 -> roomRecord
//	msg:{room}:{unix_nano}:{id} -> messageRecord
const (
	userPrefix     = "user:"
	usernamePrefix = "username:"
	roomPrefix     = "room:"
	messagePrefix  = "msg:"

	userSequence    = "seq:user"
	roomSequence    = "seq:room"
	messageSequence = "seq:message"

	sequenceBandwidth = 100
)

func userKey(id domain.UserID) []byte {
	return []byte(fmt.Sprintf("%s%019d", userPrefix, id))
}

func usernameKey(username string) []byte {
	return []byte(usernamePrefix + username)
}

func roomKey(id domain.RoomID) []byte {
	return []byte(fmt.Sprintf("%s%019d", roomPrefix, id))
}

func roomMessagesPrefix(room domain.RoomID) []byte {
	return []byte(fmt.Sprintf("%s%019d:", messagePrefix, room))
}

func messageKey(room domain.RoomID, atNano int64, id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("%s%019d:%019d:%019d", messagePrefix, room, atNano, id))
}

// messageTimestamp extracts the unix nano part of a message key.
func messageTimestamp(key []byte) (int64, error) {
	parts := strings.Split(string(key), ":")
	if len(parts) != 4 {
		return 0, fmt.Errorf("malformed message key %q", key)
	}
	return strconv.ParseInt(parts[2], 10, 64)
}

// nextID leases ids from a badger sequence. Sequences start at 0,
// ids start at 1.
func nextID(seq *badger.Sequence) (int64, error) {
	n, err := seq.Next()
	if err != nil {
		return 0, err
	}
	return int64(n) + 1, nil
}
