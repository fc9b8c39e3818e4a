package model

import "time"

// Chapter is the read-only view of a chapter owned by the chapter service.
type Chapter struct {
	ID            int64     `json:"id"`
	Version       int64     `json:"version"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	KeyConcepts   []string  `json:"key_concepts"`
	CriticalTerms []string  `json:"critical_terms"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (c Chapter) Ref() ContentRef {
	return ContentRef{ContentID: c.ID, ContentVersion: c.Version}
}
