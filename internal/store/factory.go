package store

import (
	"basegraph.app/gapengine/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Chapters() ChapterStore {
	return newChapterStore(s.queries)
}

func (s *Stores) Jobs() JobStore {
	return newJobStore(s.queries)
}

func (s *Stores) Results() ResultStore {
	return newResultStore(s.queries)
}
