package model

import (
	"encoding/json"
	"time"
)

// Citation points at the (source, page) location that supported part of an
// answer; Count is the number of context chunks from that page.
type Citation struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
	Count  int    `json:"count"`
}

// Answer stores the grounded answer for a question. Citations are stored as
// a JSON array for portability.
type Answer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;uniqueIndex" json:"question_id"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	Citations  string    `gorm:"type:text" json:"-"` // JSON array of Citation
	CreatedAt  time.Time `json:"created_at"`
}

// CitationList returns the parsed citations; empty on parse error.
func (a *Answer) CitationList() []Citation {
	if a.Citations == "" {
		return nil
	}
	var list []Citation
	_ = json.Unmarshal([]byte(a.Citations), &list)
	return list
}

// SetCitations stores the citations as JSON.
func (a *Answer) SetCitations(list []Citation) {
	if len(list) == 0 {
		a.Citations = "[]"
		return
	}
	b, _ := json.Marshal(list)
	a.Citations = string(b)
}
