package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"intake/internal/application/models"
	id "intake/pkg/domain"
	"intake/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// PostgresStore persists draft applications in PostgreSQL. Scalar field
// groups and repeated-entry collections are stored as JSONB columns so a
// step save touches a single row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed draft store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.Record, resumeCodeHash string) error {
	groups, err := marshalGroups(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO applications (
			id, status, personal, subject, qualifications, teaching,
			work, examining, training, additional,
			last_completed_step, amount_paid, resume_code_hash,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(rec.ID),
		string(rec.Status),
		groups.personal,
		groups.subject,
		groups.qualifications,
		groups.teaching,
		groups.work,
		groups.examining,
		groups.training,
		groups.additional,
		rec.LastCompletedStep,
		rec.AmountPaid,
		resumeCodeHash,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, appID id.ApplicationID) (*models.Record, error) {
	query := `
		SELECT id, status, personal, subject, qualifications, teaching,
			   work, examining, training, additional,
			   last_completed_step, amount_paid,
			   created_at, updated_at, submitted_at
		FROM applications
		WHERE id = $1
	`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(appID))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return rec, nil
}

// Update merges a step slice into the stored record inside a transaction,
// so concurrent saves cannot interleave a read-modify-write. The row is
// locked, mutated in memory, and written back wholesale.
func (s *PostgresStore) Update(ctx context.Context, appID id.ApplicationID, data models.StepData, lastCompletedStep int) (*models.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, status, personal, subject, qualifications, teaching,
			   work, examining, training, additional,
			   last_completed_step, amount_paid,
			   created_at, updated_at, submitted_at
		FROM applications
		WHERE id = $1
		FOR UPDATE
	`
	row := tx.QueryRowContext(ctx, query, uuid.UUID(appID))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock application: %w", err)
	}
	if rec.Status != models.StatusDraft {
		return nil, sentinel.ErrInvalidState
	}

	data.Apply(rec)
	if lastCompletedStep > rec.LastCompletedStep {
		rec.LastCompletedStep = lastCompletedStep
	}
	rec.UpdatedAt = time.Now()

	groups, err := marshalGroups(rec)
	if err != nil {
		return nil, err
	}

	update := `
		UPDATE applications
		SET personal = $2, subject = $3, qualifications = $4, teaching = $5,
			work = $6, examining = $7, training = $8, additional = $9,
			last_completed_step = $10, updated_at = $11
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, update,
		uuid.UUID(appID),
		groups.personal,
		groups.subject,
		groups.qualifications,
		groups.teaching,
		groups.work,
		groups.examining,
		groups.training,
		groups.additional,
		rec.LastCompletedStep,
		rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ResumeCodeHash(ctx context.Context, appID id.ApplicationID) (string, error) {
	query := `SELECT resume_code_hash FROM applications WHERE id = $1`

	var hash string
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(appID)).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("get resume code hash: %w", err)
	}
	return hash, nil
}

func (s *PostgresStore) RecordPayment(ctx context.Context, appID id.ApplicationID, amount int64) error {
	query := `
		UPDATE applications
		SET amount_paid = amount_paid + $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(appID), amount, time.Now(), string(models.StatusDraft))
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	return s.checkDraftAffected(ctx, appID, result)
}

func (s *PostgresStore) Submit(ctx context.Context, appID id.ApplicationID, at time.Time) error {
	query := `
		UPDATE applications
		SET status = $2, submitted_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(appID), string(models.StatusSubmitted), at, string(models.StatusDraft))
	if err != nil {
		return fmt.Errorf("submit application: %w", err)
	}
	return s.checkDraftAffected(ctx, appID, result)
}

// checkDraftAffected distinguishes a missing row from a row that has already
// left the draft state when a guarded update touched nothing.
func (s *PostgresStore) checkDraftAffected(ctx context.Context, appID id.ApplicationID, result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM applications WHERE id = $1`, uuid.UUID(appID)).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("check application status: %w", err)
	}
	return sentinel.ErrInvalidState
}

type groupColumns struct {
	personal       []byte
	subject        []byte
	qualifications []byte
	teaching       []byte
	work           []byte
	examining      []byte
	training       []byte
	additional     []byte
}

func marshalGroups(rec *models.Record) (groupColumns, error) {
	var cols groupColumns
	var err error

	marshal := func(name string, value any) []byte {
		if err != nil {
			return nil
		}
		var raw []byte
		raw, err = json.Marshal(value)
		if err != nil {
			err = fmt.Errorf("marshal %s: %w", name, err)
		}
		return raw
	}

	cols.personal = marshal("personal", rec.Personal)
	cols.subject = marshal("subject", rec.Subject)
	cols.qualifications = marshal("qualifications", rec.Qualifications)
	cols.teaching = marshal("teaching", rec.Teaching)
	cols.work = marshal("work", rec.Work)
	cols.examining = marshal("examining", rec.Examining)
	cols.training = marshal("training", rec.Training)
	cols.additional = marshal("additional", rec.Additional)
	return cols, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		rec         models.Record
		rawID       uuid.UUID
		status      string
		cols        groupColumns
		submittedAt sql.NullTime
	)

	err := row.Scan(
		&rawID,
		&status,
		&cols.personal,
		&cols.subject,
		&cols.qualifications,
		&cols.teaching,
		&cols.work,
		&cols.examining,
		&cols.training,
		&cols.additional,
		&rec.LastCompletedStep,
		&rec.AmountPaid,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&submittedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ID = id.ApplicationID(rawID)
	rec.Status = models.Status(status)
	if submittedAt.Valid {
		rec.SubmittedAt = &submittedAt.Time
	}

	unmarshal := func(name string, raw []byte, target any) {
		if err != nil || len(raw) == 0 {
			return
		}
		if uErr := json.Unmarshal(raw, target); uErr != nil {
			err = fmt.Errorf("unmarshal %s: %w", name, uErr)
		}
	}

	unmarshal("personal", cols.personal, &rec.Personal)
	unmarshal("subject", cols.subject, &rec.Subject)
	unmarshal("qualifications", cols.qualifications, &rec.Qualifications)
	unmarshal("teaching", cols.teaching, &rec.Teaching)
	unmarshal("work", cols.work, &rec.Work)
	unmarshal("examining", cols.examining, &rec.Examining)
	unmarshal("training", cols.training, &rec.Training)
	unmarshal("additional", cols.additional, &rec.Additional)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
