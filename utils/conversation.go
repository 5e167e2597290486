package utils

import (
	"fmt"
	"strconv"
	"strings"
)

const conversationIDPrefix = "conv:"

// DeriveConversationID maps an unordered pair of user ids to the canonical
// conversation identifier. Both call orders yield the same id: the two ids are
// rendered as decimal strings, ordered lexicographically and joined under a
// fixed prefix. Callers must pass two distinct, non-zero ids.
func DeriveConversationID(a, b uint) string {
	lo := strconv.FormatUint(uint64(a), 10)
	hi := strconv.FormatUint(uint64(b), 10)
	if lo > hi {
		lo, hi = hi, lo
	}
	return conversationIDPrefix + lo + "_" + hi
}

// ParseConversationID recovers the participant pair from a conversation id.
func ParseConversationID(conversationID string) (uint, uint, error) {
	raw, ok := strings.CutPrefix(conversationID, conversationIDPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("malformed conversation id %q", conversationID)
	}
	lo, hi, ok := strings.Cut(raw, "_")
	if !ok {
		return 0, 0, fmt.Errorf("malformed conversation id %q", conversationID)
	}
	a, errA := strconv.ParseUint(lo, 10, 32)
	b, errB := strconv.ParseUint(hi, 10, 32)
	if errA != nil || errB != nil || a == 0 || b == 0 {
		return 0, 0, fmt.Errorf("malformed conversation id %q", conversationID)
	}
	return uint(a), uint(b), nil
}

// ConversationParticipant reports whether userID is one of the pair encoded in
// the conversation id.
func ConversationParticipant(conversationID string, userID uint) bool {
	a, b, err := ParseConversationID(conversationID)
	if err != nil {
		return false
	}
	return userID == a || userID == b
}
