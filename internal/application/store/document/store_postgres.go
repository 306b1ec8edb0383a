package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"intake/internal/application/models"
	id "intake/pkg/domain"
	"intake/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// PostgresStore persists attachments in PostgreSQL, bytes included.
// Uploads are capped well below anything that would warrant blob storage.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed document store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, doc models.Document, content []byte) error {
	query := `
		INSERT INTO application_documents (
			id, application_id, doc_type, file_name, file_size, content, uploaded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(doc.ID),
		uuid.UUID(doc.ApplicationID),
		string(doc.Type),
		doc.FileName,
		doc.FileSize,
		content,
		doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, appID id.ApplicationID, docID id.DocumentID) error {
	query := `DELETE FROM application_documents WHERE id = $1 AND application_id = $2`

	result, err := s.db.ExecContext(ctx, query, uuid.UUID(docID), uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]models.Document, error) {
	query := `
		SELECT id, application_id, doc_type, file_name, file_size, uploaded_at
		FROM application_documents
		WHERE application_id = $1
		ORDER BY uploaded_at
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *PostgresStore) Content(ctx context.Context, appID id.ApplicationID, docID id.DocumentID) (models.Document, []byte, error) {
	query := `
		SELECT id, application_id, doc_type, file_name, file_size, uploaded_at, content
		FROM application_documents
		WHERE id = $1 AND application_id = $2
	`
	var (
		doc      models.Document
		rawID    uuid.UUID
		rawAppID uuid.UUID
		docType  string
		content  []byte
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(docID), uuid.UUID(appID)).Scan(
		&rawID, &rawAppID, &docType, &doc.FileName, &doc.FileSize, &doc.UploadedAt, &content,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Document{}, nil, sentinel.ErrNotFound
		}
		return models.Document{}, nil, fmt.Errorf("get document content: %w", err)
	}
	doc.ID = id.DocumentID(rawID)
	doc.ApplicationID = id.ApplicationID(rawAppID)
	doc.Type = models.DocumentType(docType)
	return doc, content, nil
}

func scanDocument(rows *sql.Rows) (models.Document, error) {
	var (
		doc      models.Document
		rawID    uuid.UUID
		rawAppID uuid.UUID
		docType  string
	)
	err := rows.Scan(&rawID, &rawAppID, &docType, &doc.FileName, &doc.FileSize, &doc.UploadedAt)
	if err != nil {
		return models.Document{}, err
	}
	doc.ID = id.DocumentID(rawID)
	doc.ApplicationID = id.ApplicationID(rawAppID)
	doc.Type = models.DocumentType(docType)
	return doc, nil
}
