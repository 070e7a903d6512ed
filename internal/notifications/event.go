// Package notifications carries change notifications between components: an in-process
// bus, a Redis fan-out between instances and a WebSocket hub for connected browsers.
package notifications

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"sherise/internal/store"
)

// Event names. Subscribers re-read the named slice; the detail is advisory.
const (
	EventHiringUpdated       = "hiringUpdated"
	EventOpenHiringForm      = "openHiringForm"
	EventCartUpdated         = "cartUpdated"
	EventOrdersUpdated       = "ordersUpdated"
	EventCheckoutUpdated     = "checkoutUpdated"
	EventFollowsUpdated      = "followsUpdated"
	EventLikesUpdated        = "likesUpdated"
	EventPostsUpdated        = "postsUpdated"
	EventProfileUpdated      = "profileUpdated"
	EventCoachUpdated        = "coachUpdated"
	EventConversationUpdated = "conversationUpdated"
	EventSliceUpdated        = "sliceUpdated"
)

var knownEvents = map[string]bool{
	EventHiringUpdated:       true,
	EventOpenHiringForm:      true,
	EventCartUpdated:         true,
	EventOrdersUpdated:       true,
	EventCheckoutUpdated:     true,
	EventFollowsUpdated:      true,
	EventLikesUpdated:        true,
	EventPostsUpdated:        true,
	EventProfileUpdated:      true,
	EventCoachUpdated:        true,
	EventConversationUpdated: true,
	EventSliceUpdated:        true,
}

// IsKnownEvent reports whether name is one of the event names above.
func IsKnownEvent(name string) bool {
	return knownEvents[name]
}

// Event is a named notification addressed to a scope (store.SharedScope or a user scope).
type Event struct {
	Name   string          `json:"type"`
	Scope  string          `json:"scope"`
	Detail json.RawMessage `json:"payload,omitempty"`
	Origin string          `json:"origin,omitempty"`
	At     time.Time       `json:"at"`
}

// NewEvent builds an event; a detail that cannot be encoded is left out.
func NewEvent(name, scope string, detail any) Event {
	e := Event{Name: name, Scope: scope, At: time.Now().UTC()}
	if detail != nil {
		if raw, err := json.Marshal(detail); err == nil {
			e.Detail = raw
		}
	}
	return e
}

// UserEvent is NewEvent addressed to one user.
func UserEvent(name string, userID uint, detail any) Event {
	return NewEvent(name, store.UserScope(userID), detail)
}

// SharedEvent is NewEvent addressed to everyone.
func SharedEvent(name string, detail any) Event {
	return NewEvent(name, store.SharedScope, detail)
}

// IsShared reports whether the event goes to every client.
func (e Event) IsShared() bool {
	return e.Scope == store.SharedScope
}

// UserID returns the addressed user for a user-scoped event.
func (e Event) UserID() (uint, bool) {
	rest, ok := strings.CutPrefix(e.Scope, "user:")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
