package index

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"kb_rag/internal/domain"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Pgvector - индекс в таблице Postgres с расширением pgvector.
// Пересборка идёт в одной транзакции под advisory-lock,
// поэтому частично записанная таблица не видна никому.
type Pgvector struct {
	db    *sqlx.DB
	table string
	log   *zap.Logger
}

type pgRow struct {
	ID           string  `db:"id"`
	EntityID     string  `db:"entity_id"`
	SectionTitle string  `db:"section_title"`
	Content      string  `db:"content"`
	Metadata     []byte  `db:"metadata"`
	Similarity   float64 `db:"similarity"`
}

// OpenPgvector подключается к Postgres по dsn
func OpenPgvector(ctx context.Context, dsn, table string, log *zap.Logger) (*Pgvector, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidInput, table)
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %w", domain.ErrStorageUnavailable, err)
	}
	return &Pgvector{db: db, table: table, log: log}, nil
}

func (p *Pgvector) Rebuild(ctx context.Context, chunks []domain.Chunk) (err error) {
	if err := validate(chunks); err != nil {
		return err
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrStorageUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ddl := []string{
		`SELECT pg_advisory_xact_lock(hashtext('` + p.table + `'))`,
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`DROP TABLE IF EXISTS ` + p.table,
		`CREATE TABLE ` + p.table + ` (
			id            TEXT PRIMARY KEY,
			entity_id     TEXT NOT NULL,
			section_title TEXT NOT NULL,
			content       TEXT NOT NULL,
			metadata      JSONB NOT NULL,
			embedding     vector NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
		}
	}

	insert := `INSERT INTO ` + p.table + ` (id, entity_id, section_title, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, c := range chunks {
		var meta []byte
		meta, err = json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("%w: encode metadata of %s: %w", domain.ErrInvalidInput, c.ID, err)
		}
		if _, err = tx.ExecContext(ctx, insert,
			c.ID, c.EntityID, c.SectionTitle, c.Content, meta, pgvector.NewVector(c.Embedding),
		); err != nil {
			return fmt.Errorf("%w: insert %s: %w", domain.ErrStorageUnavailable, c.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrStorageUnavailable, err)
	}
	p.log.Info("index rebuilt", zap.String("table", p.table), zap.Int("chunks", len(chunks)))
	return nil
}

func (p *Pgvector) Search(ctx context.Context, query []float32, k int) ([]domain.Match, error) {
	if k <= 0 {
		return []domain.Match{}, nil
	}
	ok, err := p.tableExists(ctx)
	if err != nil || !ok {
		return []domain.Match{}, err
	}

	var rows []pgRow
	q := `SELECT id, entity_id, section_title, content, metadata,
			1 - (embedding <=> $1) AS similarity
		FROM ` + p.table + `
		ORDER BY embedding <=> $1
		LIMIT $2`
	if err := p.db.SelectContext(ctx, &rows, q, pgvector.NewVector(query), k); err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrStorageUnavailable, err)
	}

	matches := make([]domain.Match, 0, len(rows))
	for _, r := range rows {
		meta := domain.Metadata{}
		if err := json.Unmarshal(r.Metadata, &meta); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", r.ID, err)
		}
		ch := chunkFromMetadata(r.ID, r.Content, meta)
		ch.EntityID = r.EntityID
		ch.SectionTitle = r.SectionTitle
		matches = append(matches, domain.Match{Chunk: ch, Similarity: float32(r.Similarity)})
	}
	return matches, nil
}

func (p *Pgvector) Count(ctx context.Context) (int, error) {
	ok, err := p.tableExists(ctx)
	if err != nil || !ok {
		return 0, err
	}
	var n int
	if err := p.db.GetContext(ctx, &n, `SELECT count(*) FROM `+p.table); err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrStorageUnavailable, err)
	}
	return n, nil
}

func (p *Pgvector) Close() error {
	return p.db.Close()
}

func (p *Pgvector) tableExists(ctx context.Context) (bool, error) {
	var exists bool
	if err := p.db.GetContext(ctx, &exists, `SELECT to_regclass($1) IS NOT NULL`, p.table); err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return exists, nil
}
