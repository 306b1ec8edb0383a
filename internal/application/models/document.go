package models

import (
	"time"

	id "intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
)

// DocumentType is the closed set of attachment kinds an application accepts.
type DocumentType string

const (
	DocumentTypePhotograph  DocumentType = "photograph"
	DocumentTypeCertificate DocumentType = "certificate"
	DocumentTypeTranscript  DocumentType = "transcript"
)

// ParseDocumentType validates a string against the closed type set.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	if !t.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown document type %q", s)
	}
	return t, nil
}

// IsValid checks if the document type is one of the supported enum values.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypePhotograph, DocumentTypeCertificate, DocumentTypeTranscript:
		return true
	}
	return false
}

func (t DocumentType) String() string {
	return string(t)
}

// DocumentPolicy governs how many attachments of a type an application may
// carry and whether a new upload replaces the existing one.
type DocumentPolicy struct {
	MaxCount        int
	ReplaceOnUpload bool
}

// PolicyFor returns the attachment policy for a document type. Photographs
// are singletons with replace-on-upload semantics; the rest append up to a
// cap and are removed only by explicit delete.
func PolicyFor(t DocumentType) DocumentPolicy {
	switch t {
	case DocumentTypePhotograph:
		return DocumentPolicy{MaxCount: 1, ReplaceOnUpload: true}
	case DocumentTypeCertificate:
		return DocumentPolicy{MaxCount: 5}
	case DocumentTypeTranscript:
		return DocumentPolicy{MaxCount: 3}
	}
	return DocumentPolicy{}
}

// Document is an attachment record belonging to an application.
type Document struct {
	ID            id.DocumentID    `json:"id"`
	ApplicationID id.ApplicationID `json:"application_id"`
	Type          DocumentType     `json:"type"`
	FileName      string           `json:"file_name"`
	FileSize      int64            `json:"file_size"`
	UploadedAt    time.Time        `json:"uploaded_at"`
}

// CountByType tallies attachments per type; the documents gate and the
// upload policies both consume this.
func CountByType(docs []Document) map[DocumentType]int {
	counts := make(map[DocumentType]int, len(docs))
	for _, d := range docs {
		counts[d.Type]++
	}
	return counts
}
