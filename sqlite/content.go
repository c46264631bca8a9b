package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/contentsync"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ contentsync.ContentStore = (*ContentService)(nil)

const contentColumns = "id, type, title, body, data, status, language, translation_group, meta, created_at, updated_at"

// queryer is satisfied by both *DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ContentService implements contentsync.ContentStore using SQLite.
type ContentService struct {
	db *DB
}

// NewContentService creates a new ContentService.
func NewContentService(db *DB) *ContentService {
	return &ContentService{db: db}
}

// CreateContent inserts a new content item and sets its ID and timestamps.
// An empty status defaults to draft.
func (s *ContentService) CreateContent(ctx context.Context, content *contentsync.Content) error {
	if content.Status == "" {
		content.Status = contentsync.StatusDraft
	}
	if err := content.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	content.CreatedAt = now
	content.UpdatedAt = now

	id, err := insertContent(ctx, s.db, content)
	if err != nil {
		return err
	}
	content.ID = id
	return nil
}

// FindContentByID retrieves a content item by ID.
func (s *ContentService) FindContentByID(ctx context.Context, id int) (*contentsync.Content, error) {
	return findContentByID(ctx, s.db, id)
}

// FindContents retrieves content matching the filter, oldest first.
func (s *ContentService) FindContents(ctx context.Context, filter contentsync.ContentFilter) ([]*contentsync.Content, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + contentColumns + " FROM contents WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Type != nil {
		query.WriteString(" AND type = ?")
		args = append(args, *filter.Type)
	}
	if filter.Language != nil {
		query.WriteString(" AND language = ?")
		args = append(args, *filter.Language)
	}
	if filter.TranslationGroup != nil {
		query.WriteString(" AND translation_group = ?")
		args = append(args, *filter.TranslationGroup)
	}

	query.WriteString(" ORDER BY id ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contents []*contentsync.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, rows.Err()
}

// UpdateContent applies upd to an existing content item. Meta entries are
// merged into the existing meta.
func (s *ContentService) UpdateContent(ctx context.Context, id int, upd contentsync.ContentUpdate) error {
	content, err := findContentByID(ctx, s.db, id)
	if err != nil {
		return err
	}

	if upd.Title != nil {
		content.Title = *upd.Title
	}
	if upd.Body != nil {
		content.Body = *upd.Body
	}
	if upd.Data != nil {
		content.Data = *upd.Data
	}
	if upd.Status != nil {
		content.Status = *upd.Status
	}
	if upd.Language != nil {
		content.Language = *upd.Language
	}
	if len(upd.Meta) > 0 {
		if content.Meta == nil {
			content.Meta = make(map[string]string, len(upd.Meta))
		}
		maps.Copy(content.Meta, upd.Meta)
	}

	if err := content.Validate(); err != nil {
		return err
	}

	meta, err := encodeMeta(content.Meta)
	if err != nil {
		return err
	}
	content.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE contents
		SET title = ?, body = ?, data = ?, status = ?, language = ?, meta = ?, updated_at = ?
		WHERE id = ?
	`, content.Title, content.Body, content.Data, string(content.Status), content.Language, meta,
		content.UpdatedAt.Format(time.RFC3339), id)
	return err
}

// DeleteContent permanently removes a content item.
func (s *ContentService) DeleteContent(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM contents WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return contentsync.Errorf(contentsync.ENOTFOUND, "content not found")
	}
	return nil
}

// CloneContents duplicates each source item as a draft in one transaction.
// A source without a translation group is given a new one first so the
// clone can share it. Unknown IDs are reported as failed.
func (s *ContentService) CloneContents(ctx context.Context, ids []int) (*contentsync.CloneContentsResult, error) {
	result := &contentsync.CloneContentsResult{
		Cloned: []contentsync.ClonePair{},
		Failed: []contentsync.CloneFailure{},
	}
	if len(ids) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, id := range ids {
		src, err := findContentByID(ctx, tx, id)
		if contentsync.ErrorCode(err) == contentsync.ENOTFOUND {
			result.Failed = append(result.Failed, contentsync.CloneFailure{ID: id, Reason: contentsync.ErrorMessage(err)})
			continue
		} else if err != nil {
			return nil, err
		}

		if src.TranslationGroup == "" {
			src.TranslationGroup = uuid.New().String()
			if _, err := tx.ExecContext(ctx, "UPDATE contents SET translation_group = ? WHERE id = ?", src.TranslationGroup, id); err != nil {
				return nil, err
			}
		}

		cp := *src
		cp.Status = contentsync.StatusDraft
		cp.Meta = maps.Clone(src.Meta)
		if cp.Meta == nil {
			cp.Meta = make(map[string]string, 1)
		}
		cp.Meta[contentsync.MetaSourceID] = strconv.Itoa(src.ID)
		cp.CreatedAt = now
		cp.UpdatedAt = now

		cloneID, err := insertContent(ctx, tx, &cp)
		if err != nil {
			return nil, err
		}
		result.Cloned = append(result.Cloned, contentsync.ClonePair{OriginalID: id, CloneID: cloneID})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func insertContent(ctx context.Context, q queryer, content *contentsync.Content) (int, error) {
	meta, err := encodeMeta(content.Meta)
	if err != nil {
		return 0, err
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO contents (type, title, body, data, status, language, translation_group, meta, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, content.Type, content.Title, content.Body, content.Data, string(content.Status), content.Language,
		content.TranslationGroup, meta,
		content.CreatedAt.Format(time.RFC3339), content.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func findContentByID(ctx context.Context, q queryer, id int) (*contentsync.Content, error) {
	row := q.QueryRowContext(ctx, "SELECT "+contentColumns+" FROM contents WHERE id = ?", id)
	content, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contentsync.Errorf(contentsync.ENOTFOUND, "content not found")
	}
	if err != nil {
		return nil, err
	}
	return content, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(row scanner) (*contentsync.Content, error) {
	var content contentsync.Content
	var status, meta, createdAt, updatedAt string

	if err := row.Scan(&content.ID, &content.Type, &content.Title, &content.Body, &content.Data,
		&status, &content.Language, &content.TranslationGroup, &meta, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	content.Status = contentsync.Status(status)

	if err := json.Unmarshal([]byte(meta), &content.Meta); err != nil {
		return nil, fmt.Errorf("failed to parse meta: %w", err)
	}

	var err error
	if content.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if content.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &content, nil
}

func encodeMeta(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode meta: %w", err)
	}
	return string(b), nil
}
