package types

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity anchor for snapshots and chat interactions. The
// demographic fields are collected once during onboarding; check-ins only
// re-collect financial fields.
type User struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Subject          string     `gorm:"uniqueIndex;not null;column:subject" json:"subject"`
	Email            string     `gorm:"column:email" json:"email"`
	LatestSnapshotID *uuid.UUID `gorm:"type:uuid;column:latest_snapshot_id" json:"latest_snapshot_id"`

	Age                    *int64 `gorm:"column:age" json:"age"`
	Gender                 *int64 `gorm:"column:gender" json:"gender"`
	YearInSchool           *int64 `gorm:"column:year_in_school" json:"year_in_school"`
	Major                  *int64 `gorm:"column:major" json:"major"`
	PreferredPaymentMethod *int64 `gorm:"column:preferred_payment_method" json:"preferred_payment_method"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

// HasProfile reports whether the one-time demographic fields are all set.
func (u *User) HasProfile() bool {
	return u.Age != nil && u.Gender != nil && u.YearInSchool != nil && u.Major != nil && u.PreferredPaymentMethod != nil
}
