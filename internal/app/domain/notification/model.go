package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Notification is one entry in the user-facing status feed. An empty UserID
// marks a broadcast visible to every reader.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId,omitempty"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Category  string     `json:"category,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

// NewID generates a feed entry id.
func NewID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("ntf_%d_%s", time.Now().UnixMilli(), suffix)
}
