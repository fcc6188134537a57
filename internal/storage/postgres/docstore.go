package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avelichko/memorylane/internal/docstore"
)

// DocStore is the postgres-backed document store. One row per document:
//
//	CREATE TABLE documents (
//	    collection TEXT        NOT NULL,
//	    id         TEXT        NOT NULL,
//	    data       JSONB       NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (collection, id)
//	);
type DocStore struct {
	db    *sqlx.DB
	clock func() time.Time
}

func NewDocStore(db *sqlx.DB) *DocStore {
	return &DocStore{db: db, clock: time.Now}
}

// Field names end up inside SQL jsonb path expressions, so they are
// restricted to identifier characters.
var fieldNameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func validFieldName(name string) error {
	if !fieldNameRe.MatchString(name) {
		return fmt.Errorf("invalid field name %q", name)
	}
	return nil
}

func (s *DocStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	const q = `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	var data json.RawMessage
	err := s.db.GetContext(ctx, &data, q, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("document get: %w", err)
	}
	return docstore.Document{ID: id, Data: data}, nil
}

func (s *DocStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	const q = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`

	id := uuid.NewString()
	data, err := json.Marshal(s.resolveSentinels(fields))
	if err != nil {
		return "", fmt.Errorf("document encode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, q, collection, id, data); err != nil {
		return "", fmt.Errorf("document insert: %w", err)
	}
	return id, nil
}

// Update merges fields into the document body in a single statement: keys
// marked DeleteField are stripped, the rest overwrite via jsonb concat.
func (s *DocStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	merge := make(map[string]any, len(fields))
	var deletes []string
	for name, value := range fields {
		if err := validFieldName(name); err != nil {
			return err
		}
		if value == docstore.DeleteField {
			deletes = append(deletes, name)
			continue
		}
		merge[name] = value
	}

	expr := "data"
	for _, name := range deletes {
		expr += fmt.Sprintf(" - '%s'", name)
	}

	data, err := json.Marshal(s.resolveSentinels(merge))
	if err != nil {
		return fmt.Errorf("document encode: %w", err)
	}

	q := fmt.Sprintf(
		`UPDATE documents SET data = (%s) || $3::jsonb, updated_at = now() WHERE collection = $1 AND id = $2`,
		expr,
	)
	res, err := s.db.ExecContext(ctx, q, collection, id, data)
	if err != nil {
		return fmt.Errorf("document update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("document update: %w", err)
	}
	if affected == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *DocStore) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM documents WHERE collection = $1 AND id = $2`

	res, err := s.db.ExecContext(ctx, q, collection, id)
	if err != nil {
		return fmt.Errorf("document delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("document delete: %w", err)
	}
	if affected == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *DocStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)
	args := []any{collection}

	for _, f := range q.Filters {
		if err := validFieldName(f.Field); err != nil {
			return nil, err
		}
		args = append(args, fmt.Sprint(f.Value))
		switch f.Op {
		case docstore.OpEq:
			fmt.Fprintf(&sb, ` AND data->>'%s' = $%d`, f.Field, len(args))
		case docstore.OpArrayContains:
			fmt.Fprintf(&sb, ` AND data->'%s' ? $%d`, f.Field, len(args))
		default:
			return nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}

	orderBy, err := orderClause(q)
	if err != nil {
		return nil, err
	}
	sb.WriteString(orderBy)

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows := []struct {
		ID   string          `db:"id"`
		Data json.RawMessage `db:"data"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("document query: %w", err)
	}

	docs := make([]docstore.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, docstore.Document{ID: row.ID, Data: row.Data})
	}
	return docs, nil
}

// orderClause builds the ORDER BY fragment. Timestamp fields are cast so
// RFC3339 values with differing fractional-second precision still order
// chronologically; plain text ordering would put "…:00.5Z" before "…:00Z".
func orderClause(q docstore.Query) (string, error) {
	if q.OrderBy == "" {
		return ` ORDER BY id ASC`, nil
	}
	if err := validFieldName(q.OrderBy); err != nil {
		return "", err
	}
	expr := fmt.Sprintf(`data->>'%s'`, q.OrderBy)
	if q.OrderByTime {
		expr = fmt.Sprintf(`(data->>'%s')::timestamptz`, q.OrderBy)
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(` ORDER BY %s %s NULLS LAST`, expr, dir), nil
}

// ArrayAppend appends items to an array field in one statement; a missing
// field starts as an empty array.
func (s *DocStore) ArrayAppend(ctx context.Context, collection, id, field string, items ...any) error {
	if err := validFieldName(field); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("array encode: %w", err)
	}

	q := fmt.Sprintf(
		`UPDATE documents
         SET data = jsonb_set(data, '{%s}', coalesce(data->'%s', '[]'::jsonb) || $3::jsonb),
             updated_at = now()
         WHERE collection = $1 AND id = $2`,
		field, field,
	)
	res, err := s.db.ExecContext(ctx, q, collection, id, payload)
	if err != nil {
		return fmt.Errorf("array append: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("array append: %w", err)
	}
	if affected == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

// resolveSentinels replaces ServerTimestamp markers with the current time.
// DeleteField markers are handled by Update and are simply dropped here.
func (s *DocStore) resolveSentinels(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for name, value := range fields {
		switch value {
		case docstore.ServerTimestamp:
			out[name] = s.clock().UTC()
		case docstore.DeleteField:
		default:
			out[name] = value
		}
	}
	return out
}
