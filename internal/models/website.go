package models

import "time"

// Website is the deduplicated record of a domain named in block requests.
type Website struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	Domain    string    `json:"domain" gorm:"size:200;uniqueIndex;not null"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
