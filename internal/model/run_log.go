package model

import (
	"encoding/json"
	"time"
)

// RunLog records one executed query for operator metrics.
type RunLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"index" json:"session_id"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	Strategy   string    `gorm:"size:32;not null;index" json:"strategy"`
	Sources    string    `gorm:"type:text" json:"sources"` // JSON array of filenames
	LatencyMs  int64     `json:"latency_ms"`
	ChunkCount int       `json:"chunk_count"`
	Error      *string   `gorm:"type:text" json:"error"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// SetSources stores the cited filenames as a JSON array.
func (r *RunLog) SetSources(sources []string) {
	if len(sources) == 0 {
		r.Sources = "[]"
		return
	}
	data, err := json.Marshal(sources)
	if err != nil {
		r.Sources = "[]"
		return
	}
	r.Sources = string(data)
}
