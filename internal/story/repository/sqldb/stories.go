package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"englishbuddy/internal/story/model"
	"englishbuddy/internal/story/repository"
	"englishbuddy/pkg/logger"

	"github.com/oklog/ulid/v2"
)

const storyColumns = `id, title, text, text_hash, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(row rowScanner) (*model.Story, error) {
	var (
		s  model.Story
		ts dbTime
	)
	if err := row.Scan(&s.ID, &s.Title, &s.Text, &s.TextHash, &ts); err != nil {
		return nil, err
	}
	s.CreatedAt = ts.Time
	return &s, nil
}

func (r *StoryRepository) FindByFingerprint(ctx context.Context, fp string) (*model.Story, error) {
	const op = "storage/sqldb/FindByFingerprint"

	query := r.dialect.rebind(`SELECT ` + storyColumns + ` FROM stories WHERE text_hash = ? LIMIT 1`)
	s, err := scanStory(r.DB.QueryRowContext(ctx, query, fp))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		logger.Sugar.Errorf("Failed to look up story by fingerprint %s: %v", fp, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// CreateIfAbsent relies on the unique text_hash index: a conflicting insert is
// skipped and the already stored row is returned instead.
func (r *StoryRepository) CreateIfAbsent(ctx context.Context, s model.Story) (*model.Story, bool, error) {
	const op = "storage/sqldb/CreateIfAbsent"

	id := ulid.Make().String()
	insert := r.dialect.rebind(`INSERT INTO stories (id, title, text, text_hash) VALUES (?, ?, ?, ?)
		ON CONFLICT (text_hash) DO NOTHING`)

	res, err := r.DB.ExecContext(ctx, insert, id, s.Title, s.Text, s.TextHash)
	if err != nil {
		logger.Sugar.Errorf("Failed to insert story %q: %v", s.Title, err)
		return nil, false, fmt.Errorf("%s: insert: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("%s: rows affected: %w", op, err)
	}

	stored, err := r.FindByFingerprint(ctx, s.TextHash)
	if err != nil {
		return nil, false, fmt.Errorf("%s: read back: %w", op, err)
	}

	return stored, affected == 1, nil
}

func (r *StoryRepository) List(ctx context.Context) ([]model.Story, error) {
	const op = "storage/sqldb/List"

	rows, err := r.DB.QueryContext(ctx, `SELECT `+storyColumns+` FROM stories ORDER BY created_at DESC, id DESC`)
	if err != nil {
		logger.Sugar.Errorf("Failed to list stories: %v", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	stories := make([]model.Story, 0)
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		stories = append(stories, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return stories, nil
}

func (r *StoryRepository) Get(ctx context.Context, id string) (*model.Story, error) {
	const op = "storage/sqldb/Get"

	query := r.dialect.rebind(`SELECT ` + storyColumns + ` FROM stories WHERE id = ?`)
	s, err := scanStory(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		logger.Sugar.Errorf("Failed to get story %s: %v", id, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (r *StoryRepository) Delete(ctx context.Context, id string) error {
	const op = "storage/sqldb/Delete"

	res, err := r.DB.ExecContext(ctx, r.dialect.rebind(`DELETE FROM stories WHERE id = ?`), id)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete story %s: %v", id, err)
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}
