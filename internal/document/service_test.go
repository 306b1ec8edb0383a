package document

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"intake/internal/application/models"
	docstore "intake/internal/application/store/document"
	"intake/internal/application/store/draft"
	"intake/internal/audit"
	id "intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
)

type DocumentServiceSuite struct {
	suite.Suite
	drafts  *draft.InMemoryStore
	store   *docstore.InMemoryStore
	sink    *audit.InMemorySink
	service *Service
	ctx     context.Context
	appID   id.ApplicationID
}

func (s *DocumentServiceSuite) SetupTest() {
	s.drafts = draft.NewInMemory()
	s.store = docstore.NewInMemory()
	s.sink = audit.NewInMemorySink()
	s.service = New(s.store, s.drafts,
		WithAuditPublisher(audit.NewPublisher(s.sink)),
	)
	s.ctx = context.Background()

	now := time.Now()
	rec := &models.Record{
		ID:        id.NewApplicationID(),
		Status:    models.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.drafts.Create(s.ctx, rec, "hash"))
	s.appID = rec.ID
}

func TestDocumentServiceSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

// ============================================================
// Upload
// ============================================================

func (s *DocumentServiceSuite) TestUpload() {
	s.Run("stores a certificate", func() {
		doc, err := s.service.Upload(s.ctx, s.appID, "certificate", "degree.pdf", []byte("pdf"))
		s.Require().NoError(err)
		s.Equal(models.DocumentTypeCertificate, doc.Type)
		s.Equal(int64(3), doc.FileSize)

		docs, err := s.service.List(s.ctx, s.appID)
		s.Require().NoError(err)
		s.Len(docs, 1)
	})

	s.Run("rejects an unknown type", func() {
		_, err := s.service.Upload(s.ctx, s.appID, "selfie", "me.jpg", []byte("jpg"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects empty content", func() {
		_, err := s.service.Upload(s.ctx, s.appID, "certificate", "degree.pdf", nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects oversize content", func() {
		big := bytes.Repeat([]byte("a"), models.MaxUploadBytes+1)
		_, err := s.service.Upload(s.ctx, s.appID, "certificate", "degree.pdf", big)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects upload to an unknown application", func() {
		_, err := s.service.Upload(s.ctx, id.NewApplicationID(), "certificate", "a.pdf", []byte("x"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects upload after submission", func() {
		s.Require().NoError(s.drafts.Submit(s.ctx, s.appID, time.Now()))

		_, err := s.service.Upload(s.ctx, s.appID, "certificate", "a.pdf", []byte("x"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// ============================================================
// Policies
// ============================================================

func (s *DocumentServiceSuite) TestPolicies() {
	s.Run("a new photograph replaces the old one", func() {
		first, err := s.service.Upload(s.ctx, s.appID, "photograph", "old.jpg", []byte("jpg1"))
		s.Require().NoError(err)

		second, err := s.service.Upload(s.ctx, s.appID, "photograph", "new.jpg", []byte("jpg2"))
		s.Require().NoError(err)
		s.NotEqual(first.ID, second.ID)

		docs, err := s.service.List(s.ctx, s.appID)
		s.Require().NoError(err)
		s.Require().Len(docs, 1)
		s.Equal("new.jpg", docs[0].FileName)
	})

	s.Run("certificates append up to the cap", func() {
		names := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"}
		for _, name := range names {
			_, err := s.service.Upload(s.ctx, s.appID, "certificate", name, []byte("pdf"))
			s.Require().NoError(err)
		}

		_, err := s.service.Upload(s.ctx, s.appID, "certificate", "f.pdf", []byte("pdf"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "at most 5")
	})

	s.Run("transcripts cap at three", func() {
		for _, name := range []string{"t1.pdf", "t2.pdf", "t3.pdf"} {
			_, err := s.service.Upload(s.ctx, s.appID, "transcript", name, []byte("pdf"))
			s.Require().NoError(err)
		}

		_, err := s.service.Upload(s.ctx, s.appID, "transcript", "t4.pdf", []byte("pdf"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// ============================================================
// Delete and Download
// ============================================================

func (s *DocumentServiceSuite) TestDeleteAndDownload() {
	s.Run("deletes an attachment and audits it", func() {
		doc, err := s.service.Upload(s.ctx, s.appID, "certificate", "degree.pdf", []byte("pdf"))
		s.Require().NoError(err)

		s.Require().NoError(s.service.Delete(s.ctx, s.appID, doc.ID))

		docs, err := s.service.List(s.ctx, s.appID)
		s.Require().NoError(err)
		s.Empty(docs)

		var actions []string
		for _, e := range s.sink.Events() {
			actions = append(actions, e.Action)
		}
		s.Contains(actions, string(audit.EventDocumentDeleted))
	})

	s.Run("delete of an unknown document reports not found", func() {
		err := s.service.Delete(s.ctx, s.appID, id.NewDocumentID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("download round-trips the bytes", func() {
		doc, err := s.service.Upload(s.ctx, s.appID, "certificate", "degree.pdf", []byte("pdf-bytes"))
		s.Require().NoError(err)

		found, content, err := s.service.Download(s.ctx, s.appID, doc.ID)
		s.Require().NoError(err)
		s.Equal(doc.ID, found.ID)
		s.Equal([]byte("pdf-bytes"), content)
	})
}
