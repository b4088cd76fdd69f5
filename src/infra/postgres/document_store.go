package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"invitationmetrics/src/repositories"
)

var _ repositories.DocumentStore = (*DocumentStore)(nil)

const migrationQuery = `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		key        TEXT NOT NULL,
		instant    TIMESTAMPTZ NOT NULL,
		body       JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, key)
	);
	CREATE INDEX IF NOT EXISTS documents_collection_instant_idx ON documents (collection, instant);
	CREATE INDEX IF NOT EXISTS documents_body_gin_idx ON documents USING GIN (body jsonb_path_ops);
`

// DocumentStore implementa o contrato de documentos sobre uma única tabela
// JSONB. Escritas e consultas vão para o primário: o pipeline relê o que
// acabou de gravar e não pode ver uma réplica atrasada. A réplica só entra
// no health check.
type DocumentStore struct {
	client *ReadWriteClient
}

func NewDocumentStore(client *ReadWriteClient) *DocumentStore {
	return &DocumentStore{client: client}
}

// Migrate creates the documents table and its indexes.
func (s *DocumentStore) Migrate(ctx context.Context) error {
	if _, err := s.client.GetWritePool().Exec(ctx, migrationQuery); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return nil
}

func (s *DocumentStore) UpsertBatch(ctx context.Context, collection string, docs []repositories.Document) error {
	if len(docs) == 0 {
		return nil
	}

	docs, err := repositories.CoalesceBatch(docs)
	if err != nil {
		return fmt.Errorf("invalid batch for %s: %w", collection, err)
	}

	tx, err := s.client.GetWritePool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows := make([][]interface{}, len(docs))
	for i, doc := range docs {
		rows[i] = []interface{}{doc.Key, doc.Instant.UTC(), []byte(doc.Body)}
	}

	tempTableQuery := `CREATE TEMP TABLE temp_documents (
		key     TEXT,
		instant TIMESTAMPTZ,
		body    JSONB
	) ON COMMIT DROP;`
	if _, err := tx.Exec(ctx, tempTableQuery); err != nil {
		return fmt.Errorf("failed to create temp documents table: %w", err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"temp_documents"},
		[]string{"key", "instant", "body"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy documents to temp table: %w", err)
	}

	// O merge é feito pelo operador || do JSONB: campos ausentes no novo
	// documento são preservados. O WHERE evita escrita quando nada mudou.
	query := `
		INSERT INTO documents (collection, key, instant, body)
		SELECT $1, key, instant, body FROM temp_documents
		ON CONFLICT (collection, key)
		DO UPDATE SET
			instant    = excluded.instant,
			body       = documents.body || excluded.body,
			updated_at = NOW()
		WHERE
			documents.body || excluded.body IS DISTINCT FROM documents.body
			OR documents.instant IS DISTINCT FROM excluded.instant;
	`
	if _, err := tx.Exec(ctx, query, collection); err != nil {
		return fmt.Errorf("failed to execute documents upsert query: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit documents batch: %w", err)
	}

	return nil
}

func (s *DocumentStore) QueryRange(ctx context.Context, collection string, q repositories.RangeQuery) ([]repositories.Document, error) {
	searchJSON, err := BuildSearchJSON(q.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to build search json: %w", err)
	}

	query := `
		SELECT key, instant, body
		FROM documents
		WHERE collection = $1
			AND instant >= $2
			AND instant < $3
			AND body @> $4::jsonb
		ORDER BY instant, key;
	`
	rows, err := s.client.GetWritePool().Query(ctx, query, collection, q.From.UTC(), q.Until.UTC(), searchJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]repositories.Document, 0)
	for rows.Next() {
		var (
			key     string
			instant time.Time
			body    []byte
		)
		if err := rows.Scan(&key, &instant, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		docs = append(docs, repositories.Document{Key: key, Instant: instant.UTC(), Body: body})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	if err := s.client.GetWritePool().Ping(ctx); err != nil {
		return fmt.Errorf("primary unavailable: %w", err)
	}

	if err := s.client.GetReadPool().Ping(ctx); err != nil {
		return fmt.Errorf("replica unavailable: %w", err)
	}

	return nil
}

func (s *DocumentStore) Close() error {
	s.client.Close()
	return nil
}

// Truncate removes every document of collection. Used by integration tests.
func (s *DocumentStore) Truncate(ctx context.Context, collection string) error {
	_, err := s.client.GetWritePool().Exec(ctx, "DELETE FROM documents WHERE collection = $1", collection)
	return err
}
