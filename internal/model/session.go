package model

import "time"

// Session is an isolated workspace grouping documents, questions and one
// chunk-store collection.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
