// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// EditRecord describes one completed image edit. Records are immutable after
// creation; the only mutation the store supports is deletion by the owner.
type EditRecord struct {
	ID               string     `db:"id" json:"id"`
	OwnerID          *uuid.UUID `db:"user_id" json:"owner_id,omitempty"`
	Prompt           string     `db:"prompt" json:"prompt"`
	OriginalImageURL string     `db:"original_image_url" json:"original_image_url"`
	EditedImageURL   string     `db:"edited_image_url" json:"edited_image_url"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}
