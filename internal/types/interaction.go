package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatInteraction is one append-only coaching turn: the user's message and
// the validated coach output, including which proposed field updates were
// applied and which were rejected.
type ChatInteraction struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_interaction_user_created" json:"user_id"`
	SnapshotID *uuid.UUID `gorm:"type:uuid" json:"snapshot_id"`

	UserMessage string         `gorm:"type:text;not null" json:"user_message"`
	CoachOutput datatypes.JSON `gorm:"not null" json:"coach_output"`

	CreatedAt time.Time `gorm:"not null;index:idx_interaction_user_created" json:"created_at"`
}

func (ChatInteraction) TableName() string {
	return "chat_interaction"
}

func NewChatInteraction(userID uuid.UUID, snapshotID *uuid.UUID, message string, out CoachOutput) (*ChatInteraction, error) {
	outputJSON, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal coach output: %w", err)
	}
	return &ChatInteraction{
		ID:          uuid.New(),
		UserID:      userID,
		SnapshotID:  snapshotID,
		UserMessage: message,
		CoachOutput: outputJSON,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (i *ChatInteraction) DecodeOutput() (CoachOutput, error) {
	var out CoachOutput
	if err := json.Unmarshal(i.CoachOutput, &out); err != nil {
		return CoachOutput{}, fmt.Errorf("decode coach output: %w", err)
	}
	return out, nil
}
