// Package postgres implements store.Driver against PostgreSQL with the
// pgvector extension, giving native nearest-neighbor operators over
// concept embeddings.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/google/uuid"

	"github.com/hrygo/mindmapforge/core/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS concepts (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	text TEXT NOT NULL,
	text_key TEXT NOT NULL,
	embedding vector NOT NULL,
	importance REAL NOT NULL DEFAULT 0.5,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, text_key)
);

CREATE TABLE IF NOT EXISTS text_references (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	concept TEXT NOT NULL,
	text_excerpt TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_text_references_user_concept ON text_references (user_id, concept);

CREATE TABLE IF NOT EXISTS scenes (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	groups_json JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the Postgres-backed store.Driver implementation.
type DB struct {
	db *sql.DB
}

// NewDB opens a connection pool to dsn, ensures the extension and schema
// exist, and returns the driver.
func NewDB(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn required")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if _, err := sqlDB.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return nil, errors.Wrap(err, "failed to enable pgvector extension")
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		return nil, errors.Wrap(err, "failed to apply schema")
	}

	return &DB{db: sqlDB}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) LookupEmbeddings(ctx context.Context, userID uuid.UUID, texts []string) (map[string]model.Embedding, error) {
	if len(texts) == 0 {
		return map[string]model.Embedding{}, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = strings.ToLower(strings.TrimSpace(t))
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT text_key, embedding FROM concepts WHERE user_id = $1 AND text_key = ANY($2)`,
		userID, pqStringArray(keys),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to lookup embeddings")
	}
	defer rows.Close()

	out := make(map[string]model.Embedding)
	for rows.Next() {
		var key string
		var vector pgvector.Vector
		if err := rows.Scan(&key, &vector); err != nil {
			slog.Warn("postgres: skipping corrupt embedding row", "text_key", key, "error", err)
			continue
		}
		if len(vector.Slice()) == 0 {
			slog.Warn("postgres: skipping empty embedding row", "text_key", key)
			continue
		}
		out[key] = model.Embedding(vector.Slice())
	}
	return out, rows.Err()
}

func (d *DB) SaveConcepts(ctx context.Context, userID uuid.UUID, concepts []model.Concept, embeddings map[string]model.Embedding) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := `
		INSERT INTO concepts (id, user_id, text, text_key, embedding, importance)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, text_key) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			importance = EXCLUDED.importance
	`
	for _, c := range concepts {
		emb, ok := embeddings[c.Text]
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(c.Text))
		if _, err := tx.ExecContext(ctx, stmt, uuid.New(), userID, c.Text, key, pgvector.NewVector(emb), c.Importance); err != nil {
			return errors.Wrapf(err, "failed to upsert concept %q", c.Text)
		}
	}

	return tx.Commit()
}

func (d *DB) SaveTextReferences(ctx context.Context, refs []model.TextReference) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := `
		INSERT INTO text_references (id, user_id, concept, text_excerpt, source_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, r := range refs {
		userID, err := uuid.Parse(r.UserID)
		if err != nil {
			return errors.Wrapf(err, "invalid user id %q on text reference", r.UserID)
		}
		id, err := uuid.Parse(r.ID)
		if err != nil {
			id = uuid.New()
		}
		if _, err := tx.ExecContext(ctx, stmt, id, userID, r.Concept, r.TextExcerpt, r.SourceURL, time.Unix(r.CreatedAt, 0)); err != nil {
			return errors.Wrap(err, "failed to insert text reference")
		}
	}

	return tx.Commit()
}

func (d *DB) TextsByConcept(ctx context.Context, userID uuid.UUID, concept string) ([]model.TextReference, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, concept, text_excerpt, source_url, created_at
		 FROM text_references WHERE user_id = $1 AND concept = $2 ORDER BY created_at DESC`,
		userID, concept,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list text references")
	}
	defer rows.Close()

	var out []model.TextReference
	for rows.Next() {
		var (
			ref       model.TextReference
			createdAt time.Time
		)
		if err := rows.Scan(&ref.ID, &ref.UserID, &ref.Concept, &ref.TextExcerpt, &ref.SourceURL, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan text reference")
		}
		ref.CreatedAt = createdAt.Unix()
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (d *DB) SaveScene(ctx context.Context, scene *model.Scene) error {
	groupsJSON, err := marshalGroups(scene.Groups)
	if err != nil {
		return errors.Wrap(err, "failed to marshal scene groups")
	}

	id, err := uuid.Parse(scene.ID)
	if err != nil {
		return errors.Wrapf(err, "invalid scene id %q", scene.ID)
	}
	userID, err := uuid.Parse(scene.UserID)
	if err != nil {
		return errors.Wrapf(err, "invalid user id %q", scene.UserID)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO scenes (id, user_id, groups_json, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET groups_json = EXCLUDED.groups_json`,
		id, userID, groupsJSON, time.Unix(scene.CreatedAt, 0),
	)
	if err != nil {
		return errors.Wrap(err, "failed to save scene")
	}
	return nil
}

func (d *DB) GetScene(ctx context.Context, id uuid.UUID) (*model.Scene, error) {
	var (
		userID      uuid.UUID
		groupsJSON  []byte
		createdAt   time.Time
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT user_id, groups_json, created_at FROM scenes WHERE id = $1`, id,
	).Scan(&userID, &groupsJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load scene")
	}

	groups, err := unmarshalGroups(groupsJSON)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal scene groups")
	}

	return &model.Scene{
		ID:        id.String(),
		UserID:    userID.String(),
		Groups:    groups,
		CreatedAt: createdAt.Unix(),
	}, nil
}

func marshalGroups(groups []model.ConceptGroup) ([]byte, error) {
	return json.Marshal(groups)
}

func unmarshalGroups(data []byte) ([]model.ConceptGroup, error) {
	var groups []model.ConceptGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func pqStringArray(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "{" + strings.Join(quoted, ",") + "}"
}
