package draft

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"intake/internal/application/models"
	id "intake/pkg/domain"
	"intake/pkg/platform/sentinel"
)

type DraftStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func (s *DraftStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestDraftStoreSuite(t *testing.T) {
	suite.Run(t, new(DraftStoreSuite))
}

func (s *DraftStoreSuite) newRecord() *models.Record {
	now := time.Now()
	return &models.Record{
		ID:     id.NewApplicationID(),
		Status: models.StatusDraft,
		Personal: models.PersonalParticulars{
			Title:       "Dr",
			FamilyName:  "Okafor",
			GivenNames:  "Adaeze",
			Region:      "UK",
			Email:       "a.okafor@example.org",
			MobilePhone: "07700 900123",
		},
		LastCompletedStep: 1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// TestCreationAndLookups verifies the store correctly creates and retrieves drafts.
func (s *DraftStoreSuite) TestCreationAndLookups() {
	s.Run("creates and fetches a draft", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))

		found, err := s.store.Get(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(rec.Personal.Email, found.Personal.Email)
		s.Equal(1, found.LastCompletedStep)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.Get(s.ctx, id.NewApplicationID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate ID", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))
		s.Require().ErrorIs(s.store.Create(s.ctx, rec, "hash"), sentinel.ErrConflict)
	})

	s.Run("returned record is a copy", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))

		found, err := s.store.Get(s.ctx, rec.ID)
		s.Require().NoError(err)
		found.Personal.Email = "mutated@example.org"

		again, err := s.store.Get(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal("a.okafor@example.org", again.Personal.Email)
	})
}

// TestUpdate verifies step-slice merges and the draft status guard.
func (s *DraftStoreSuite) TestUpdate() {
	s.Run("merges a group and advances the progress marker", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))

		subject := models.SubjectSelection{SubjectType: "written", SubjectID: "piano-grade-8"}
		updated, err := s.store.Update(s.ctx, rec.ID, models.StepData{Subject: &subject}, 2)
		s.Require().NoError(err)
		s.Equal("piano-grade-8", updated.Subject.SubjectID)
		s.Equal(2, updated.LastCompletedStep)

		// untouched groups survive
		s.Equal(rec.Personal.Email, updated.Personal.Email)
	})

	s.Run("repeated identical update yields the same record", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))

		quals := []models.Qualification{{UniversityCollege: "RCM", DegreeType: "BMus"}}
		first, err := s.store.Update(s.ctx, rec.ID, models.StepData{Qualifications: &quals}, 3)
		s.Require().NoError(err)
		second, err := s.store.Update(s.ctx, rec.ID, models.StepData{Qualifications: &quals}, 3)
		s.Require().NoError(err)
		s.Equal(first.Qualifications, second.Qualifications)
		s.Equal(first.LastCompletedStep, second.LastCompletedStep)
	})

	s.Run("progress marker never regresses", func() {
		rec := s.newRecord()
		rec.LastCompletedStep = 5
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))

		subject := models.SubjectSelection{SubjectType: "practical", SubjectID: "violin"}
		updated, err := s.store.Update(s.ctx, rec.ID, models.StepData{Subject: &subject}, 2)
		s.Require().NoError(err)
		s.Equal(5, updated.LastCompletedStep)
	})

	s.Run("empty step data persists only the progress marker", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))

		updated, err := s.store.Update(s.ctx, rec.ID, models.StepData{}, 9)
		s.Require().NoError(err)
		s.Equal(9, updated.LastCompletedStep)
		s.Equal(rec.Personal.Email, updated.Personal.Email)
	})

	s.Run("rejects update after submission", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))
		s.Require().NoError(s.store.Submit(s.ctx, rec.ID, time.Now()))

		_, err := s.store.Update(s.ctx, rec.ID, models.StepData{}, 2)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.Update(s.ctx, id.NewApplicationID(), models.StepData{}, 2)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestResumeCodeHash verifies the hash stored at creation is retrievable.
func (s *DraftStoreSuite) TestResumeCodeHash() {
	s.Run("returns the stored hash", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "bcrypt-hash"))

		hash, err := s.store.ResumeCodeHash(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal("bcrypt-hash", hash)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.ResumeCodeHash(s.ctx, id.NewApplicationID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestPaymentAndSubmit verifies payment accumulation and the submit transition.
func (s *DraftStoreSuite) TestPaymentAndSubmit() {
	s.Run("accumulates payments", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))

		s.Require().NoError(s.store.RecordPayment(s.ctx, rec.ID, 3000))
		s.Require().NoError(s.store.RecordPayment(s.ctx, rec.ID, 1500))

		found, err := s.store.Get(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(int64(4500), found.AmountPaid)
	})

	s.Run("submit stamps status and timestamp", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))

		at := time.Now()
		s.Require().NoError(s.store.Submit(s.ctx, rec.ID, at))

		found, err := s.store.Get(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusSubmitted, found.Status)
		s.Require().NotNil(found.SubmittedAt)
		s.WithinDuration(at, *found.SubmittedAt, time.Second)
	})

	s.Run("submit is not repeatable", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))
		s.Require().NoError(s.store.Submit(s.ctx, rec.ID, time.Now()))

		s.Require().ErrorIs(s.store.Submit(s.ctx, rec.ID, time.Now()), sentinel.ErrInvalidState)
	})

	s.Run("payment after submission is refused", func() {
		rec := s.newRecord()
		s.Require().NoError(s.store.Create(s.ctx, rec, "hash"))
		s.Require().NoError(s.store.Submit(s.ctx, rec.ID, time.Now()))

		s.Require().ErrorIs(s.store.RecordPayment(s.ctx, rec.ID, 100), sentinel.ErrInvalidState)
	})
}
