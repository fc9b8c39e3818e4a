package store

import (
	"context"
	"errors"

	"basegraph.app/gapengine/core/db/sqlc"
	"basegraph.app/gapengine/internal/model"
	"github.com/jackc/pgx/v5"
)

type chapterStore struct {
	queries *sqlc.Queries
}

func newChapterStore(queries *sqlc.Queries) ChapterStore {
	return &chapterStore{queries: queries}
}

func (s *chapterStore) GetByID(ctx context.Context, id int64) (*model.Chapter, error) {
	row, err := s.queries.GetChapter(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toChapterModel(row), nil
}

func toChapterModel(row sqlc.Chapter) *model.Chapter {
	return &model.Chapter{
		ID:            row.ID,
		Version:       row.Version,
		Title:         row.Title,
		Body:          row.Body,
		KeyConcepts:   row.KeyConcepts,
		CriticalTerms: row.CriticalTerms,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}
