package models

import (
	"errors"
	"time"
)

// Slice keys. Each names one independently stored piece of state.
const (
	SliceAuth          = "sherise_auth"
	SliceCurrentUser   = "sherise_current_user"
	SliceUsers         = "sherise_users"
	SlicePosts         = "sherise_posts"
	SliceFollows       = "sherise_follows"
	SliceHirings       = "sherise_hirings"
	SliceCart          = "sherise_cart"
	SliceOrders        = "sherise_orders"
	SliceCheckout      = "sherise_checkout"
	SlicePostLikes     = "sherise_post_likes"
	SliceExploreLikes  = "explore_likes"
	SliceExploreSaved  = "explore_saved"
	SliceCoach         = "sherise_ai_conversation"
	SliceConversations = "sherise_conversations"
)

var (
	// ErrSliceNotFound is returned by slice backends for a key that was never written.
	ErrSliceNotFound = errors.New("slice not found")
	// ErrVersionMismatch is returned when a compare-and-swap saw a different version.
	ErrVersionMismatch = errors.New("slice version mismatch")
)

// Slice is one stored JSON document, addressed by scope and key.
type Slice struct {
	Scope     string    `gorm:"primaryKey;size:64" json:"scope"`
	Key       string    `gorm:"primaryKey;column:slice_key;size:128" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	Version   int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Slice) TableName() string {
	return "slices"
}
