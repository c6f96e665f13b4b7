package models

import "time"

// BlockRequest is a submitter's complaint asking for a website to be blocked.
// Deleting the referenced Website removes its requests.
type BlockRequest struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Email       string    `json:"email" gorm:"size:254;not null"`
	IP          string    `json:"ip" gorm:"size:45;not null"`
	Outcome     Outcome   `json:"outcome" gorm:"size:16;not null;default:'undecided';index"`
	WebsiteID   uint      `json:"-" gorm:"not null;index"`
	Website     Website   `json:"website" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// OutcomeLabel is the wording used in submitter emails.
func (r *BlockRequest) OutcomeLabel() string {
	if r.Outcome == OutcomeAccepted {
		return "accepted"
	}
	return "not accepted"
}
