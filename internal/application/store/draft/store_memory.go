package draft

import (
	"context"
	"sync"
	"time"

	"intake/internal/application/models"
	id "intake/pkg/domain"
	"intake/pkg/platform/sentinel"
)

// InMemoryStore keeps draft records in a map. It backs unit tests and local
// development; the postgres store is the production twin.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.ApplicationID]*models.Record
	codes   map[id.ApplicationID]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[id.ApplicationID]*models.Record),
		codes:   make(map[id.ApplicationID]string),
	}
}

func (s *InMemoryStore) Create(_ context.Context, rec *models.Record, resumeCodeHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := cloneRecord(rec)
	s.records[rec.ID] = cp
	s.codes[rec.ID] = resumeCodeHash
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, appID id.ApplicationID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[appID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Update merges a step slice into the stored record. Field groups replace
// wholesale, so repeated calls with the same payload are idempotent. A record
// that has left the draft state refuses further writes.
func (s *InMemoryStore) Update(_ context.Context, appID id.ApplicationID, data models.StepData, lastCompletedStep int) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[appID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	if rec.Status != models.StatusDraft {
		return nil, sentinel.ErrInvalidState
	}

	data.Apply(rec)
	if lastCompletedStep > rec.LastCompletedStep {
		rec.LastCompletedStep = lastCompletedStep
	}
	rec.UpdatedAt = time.Now()
	return cloneRecord(rec), nil
}

func (s *InMemoryStore) ResumeCodeHash(_ context.Context, appID id.ApplicationID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hash, exists := s.codes[appID]
	if !exists {
		return "", sentinel.ErrNotFound
	}
	return hash, nil
}

func (s *InMemoryStore) RecordPayment(_ context.Context, appID id.ApplicationID, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[appID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if rec.Status != models.StatusDraft {
		return sentinel.ErrInvalidState
	}
	rec.AmountPaid += amount
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) Submit(_ context.Context, appID id.ApplicationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[appID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if rec.Status != models.StatusDraft {
		return sentinel.ErrInvalidState
	}
	rec.Status = models.StatusSubmitted
	rec.SubmittedAt = &at
	rec.UpdatedAt = at
	return nil
}

func cloneRecord(rec *models.Record) *models.Record {
	cp := *rec
	cp.Qualifications = append([]models.Qualification(nil), rec.Qualifications...)
	cp.Teaching = append([]models.TeachingExperience(nil), rec.Teaching...)
	cp.Work = append([]models.WorkExperience(nil), rec.Work...)
	cp.Examining = append([]models.ExaminingExperience(nil), rec.Examining...)
	cp.Training = append([]models.TrainingCourse(nil), rec.Training...)
	cp.Documents = append([]models.Document(nil), rec.Documents...)
	return &cp
}
