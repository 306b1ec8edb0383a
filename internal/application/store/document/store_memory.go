package document

import (
	"context"
	"sort"
	"sync"

	"intake/internal/application/models"
	id "intake/pkg/domain"
	"intake/pkg/platform/sentinel"
)

type stored struct {
	doc     models.Document
	content []byte
}

// InMemoryStore keeps attachments in a map keyed by document id.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]stored
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.DocumentID]stored)}
}

func (s *InMemoryStore) Add(_ context.Context, doc models.Document, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	s.docs[doc.ID] = stored{doc: doc, content: append([]byte(nil), content...)}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, appID id.ApplicationID, docID id.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.docs[docID]
	if !exists || entry.doc.ApplicationID != appID {
		return sentinel.ErrNotFound
	}
	delete(s.docs, docID)
	return nil
}

func (s *InMemoryStore) ListByApplication(_ context.Context, appID id.ApplicationID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []models.Document
	for _, entry := range s.docs {
		if entry.doc.ApplicationID == appID {
			docs = append(docs, entry.doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.Before(docs[j].UploadedAt)
	})
	return docs, nil
}

func (s *InMemoryStore) Content(_ context.Context, appID id.ApplicationID, docID id.DocumentID) (models.Document, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.docs[docID]
	if !exists || entry.doc.ApplicationID != appID {
		return models.Document{}, nil, sentinel.ErrNotFound
	}
	return entry.doc, append([]byte(nil), entry.content...), nil
}
