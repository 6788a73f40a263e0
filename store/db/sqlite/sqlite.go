// Package sqlite implements store.Driver against SQLite for development
// and single-user deployments. It has no vector extension available, so
// embeddings are stored as JSON float arrays and looked up by concept
// text only; the driver offers no similarity search.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hrygo/mindmapforge/core/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS concepts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	text TEXT NOT NULL,
	text_key TEXT NOT NULL,
	embedding_json TEXT NOT NULL,
	importance REAL NOT NULL DEFAULT 0.5,
	created_at INTEGER NOT NULL,
	UNIQUE (user_id, text_key)
);

CREATE TABLE IF NOT EXISTS text_references (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	concept TEXT NOT NULL,
	text_excerpt TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_text_references_user_concept ON text_references (user_id, concept);

CREATE TABLE IF NOT EXISTS scenes (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	groups_json TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// DB is the SQLite-backed store.Driver implementation.
type DB struct {
	db *sql.DB
}

// NewDB opens the SQLite database at dsn (a file path, or ":memory:" for
// tests) and ensures the schema exists.
func NewDB(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn required")
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite db at %s", dsn)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			return nil, errors.Wrapf(err, "failed to set pragma: %s", p)
		}
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if _, err := sqlDB.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "failed to apply schema")
	}

	return &DB{db: sqlDB}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) LookupEmbeddings(ctx context.Context, userID uuid.UUID, texts []string) (map[string]model.Embedding, error) {
	out := make(map[string]model.Embedding)
	if len(texts) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(texts))
	args := make([]any, 0, len(texts)+1)
	args = append(args, userID.String())
	for i, t := range texts {
		placeholders[i] = "?"
		args = append(args, strings.ToLower(strings.TrimSpace(t)))
	}

	query := `SELECT text_key, embedding_json FROM concepts WHERE user_id = ? AND text_key IN (` +
		strings.Join(placeholders, ",") + `)`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to lookup embeddings")
	}
	defer rows.Close()

	for rows.Next() {
		var key, embJSON string
		if err := rows.Scan(&key, &embJSON); err != nil {
			return nil, errors.Wrap(err, "failed to scan embedding row")
		}
		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			slog.Warn("sqlite: skipping corrupt embedding row", "text_key", key, "error", err)
			continue
		}
		if len(vec) == 0 {
			slog.Warn("sqlite: skipping empty embedding row", "text_key", key)
			continue
		}
		out[key] = model.Embedding(vec)
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
		INSERT INTO concepts (id, user_id, text, text_key, embedding_json, importance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, text_key) DO UPDATE SET
			embedding_json = excluded.embedding_json,
			importance = excluded.importance
	`
	now := time.Now().Unix()
	for _, c := range concepts {
		emb, ok := embeddings[c.Text]
		if !ok {
			continue
		}
		embJSON, err := json.Marshal(emb)
		if err != nil {
			return errors.Wrap(err, "failed to encode embedding")
		}
		key := strings.ToLower(strings.TrimSpace(c.Text))
		if _, err := tx.ExecContext(ctx, stmt, uuid.New().String(), userID.String(), c.Text, key, string(embJSON), c.Importance, now); err != nil {
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
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, r := range refs {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, stmt, id, r.UserID, r.Concept, r.TextExcerpt, r.SourceURL, r.CreatedAt); err != nil {
			return errors.Wrap(err, "failed to insert text reference")
		}
	}

	return tx.Commit()
}

func (d *DB) TextsByConcept(ctx context.Context, userID uuid.UUID, concept string) ([]model.TextReference, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, concept, text_excerpt, source_url, created_at
		 FROM text_references WHERE user_id = ? AND concept = ? ORDER BY created_at DESC`,
		userID.String(), concept,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list text references")
	}
	defer rows.Close()

	var out []model.TextReference
	for rows.Next() {
		var ref model.TextReference
		if err := rows.Scan(&ref.ID, &ref.UserID, &ref.Concept, &ref.TextExcerpt, &ref.SourceURL, &ref.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan text reference")
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (d *DB) SaveScene(ctx context.Context, scene *model.Scene) error {
	groupsJSON, err := json.Marshal(scene.Groups)
	if err != nil {
		return errors.Wrap(err, "failed to marshal scene groups")
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO scenes (id, user_id, groups_json, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET groups_json = excluded.groups_json`,
		scene.ID, scene.UserID, string(groupsJSON), scene.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save scene")
	}
	return nil
}

func (d *DB) GetScene(ctx context.Context, id uuid.UUID) (*model.Scene, error) {
	var (
		userID, groupsJSON string
		createdAt          int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT user_id, groups_json, created_at FROM scenes WHERE id = ?`, id.String(),
	).Scan(&userID, &groupsJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load scene")
	}

	var groups []model.ConceptGroup
	if err := json.Unmarshal([]byte(groupsJSON), &groups); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal scene groups")
	}

	return &model.Scene{
		ID:        id.String(),
		UserID:    userID,
		Groups:    groups,
		CreatedAt: createdAt,
	}, nil
}
