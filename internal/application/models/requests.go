package models

import (
	"strings"

	dErrors "intake/pkg/domain-errors"
)

// Transport-level request types. Validate here covers shape and size caps
// only; the step schema registry owns the per-field domain rules so the two
// layers never drift apart.

const (
	maxFieldLen    = 255
	maxFreeTextLen = 4000
	// MaxUploadBytes caps a single document upload.
	MaxUploadBytes = 10 << 20
)

// CreateApplicationRequest opens a draft with the accumulated step 1 and 2
// data. The backend re-runs the step schemas server-side (defense in depth).
type CreateApplicationRequest struct {
	Personal PersonalParticulars `json:"personal"`
	Subject  SubjectSelection    `json:"subject"`
}

func (r *CreateApplicationRequest) Normalize() {
	if r == nil {
		return
	}
	r.Personal.Title = strings.TrimSpace(r.Personal.Title)
	r.Personal.FamilyName = strings.TrimSpace(r.Personal.FamilyName)
	r.Personal.GivenNames = strings.TrimSpace(r.Personal.GivenNames)
	r.Personal.Region = strings.TrimSpace(r.Personal.Region)
	r.Personal.Email = strings.TrimSpace(strings.ToLower(r.Personal.Email))
	r.Personal.MobilePhone = strings.TrimSpace(r.Personal.MobilePhone)
	r.Personal.HomePhone = strings.TrimSpace(r.Personal.HomePhone)
	r.Subject.SubjectType = strings.TrimSpace(strings.ToUpper(r.Subject.SubjectType))
	r.Subject.SubjectID = strings.TrimSpace(r.Subject.SubjectID)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *CreateApplicationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	for _, f := range []string{
		r.Personal.Title, r.Personal.FamilyName, r.Personal.GivenNames,
		r.Personal.Region, r.Personal.Email, r.Personal.MobilePhone,
		r.Personal.HomePhone, r.Subject.SubjectType, r.Subject.SubjectID,
	} {
		if len(f) > maxFieldLen {
			return dErrors.Newf(dErrors.CodeValidation, "field must be %d characters or less", maxFieldLen)
		}
	}

	return nil
}

// UpdateDraftRequest carries one step's slice of the record plus the
// last-completed-step high-water mark.
type UpdateDraftRequest struct {
	Data              StepData `json:"data"`
	LastCompletedStep int      `json:"last_completed_step"`
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *UpdateDraftRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if r.Data.Additional != nil {
		if len(r.Data.Additional.Notes) > maxFreeTextLen ||
			len(r.Data.Additional.SpecialRequirements) > maxFreeTextLen {
			return dErrors.Newf(dErrors.CodeValidation, "free text must be %d characters or less", maxFreeTextLen)
		}
	}

	// An empty Data is legal: gate steps persist only the progress marker.
	if r.LastCompletedStep < 1 || r.LastCompletedStep > 10 {
		return dErrors.New(dErrors.CodeValidation, "last_completed_step must be between 1 and 10")
	}

	return nil
}

// ResumeRequest re-opens a session against an existing draft.
type ResumeRequest struct {
	ApplicationID string `json:"application_id"`
	ResumeCode    string `json:"resume_code"`
}

func (r *ResumeRequest) Normalize() {
	if r == nil {
		return
	}
	r.ApplicationID = strings.TrimSpace(r.ApplicationID)
	r.ResumeCode = strings.TrimSpace(r.ResumeCode)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *ResumeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if len(r.ResumeCode) > maxFieldLen {
		return dErrors.Newf(dErrors.CodeValidation, "resume_code must be %d characters or less", maxFieldLen)
	}

	if r.ApplicationID == "" {
		return dErrors.New(dErrors.CodeValidation, "application_id is required")
	}
	if r.ResumeCode == "" {
		return dErrors.New(dErrors.CodeValidation, "resume_code is required")
	}

	return nil
}

// CompletePaymentRequest records a settled payment against the draft.
type CompletePaymentRequest struct {
	Reference string `json:"reference"`
}

func (r *CompletePaymentRequest) Normalize() {
	if r == nil {
		return
	}
	r.Reference = strings.TrimSpace(r.Reference)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *CompletePaymentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Reference) > maxFieldLen {
		return dErrors.Newf(dErrors.CodeValidation, "reference must be %d characters or less", maxFieldLen)
	}
	if r.Reference == "" {
		return dErrors.New(dErrors.CodeValidation, "reference is required")
	}
	return nil
}
