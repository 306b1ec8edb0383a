package models

import (
	"time"

	id "intake/pkg/domain"
)

// Status tracks where an application sits in its lifecycle. Drafts are
// mutable and resumable; submitted applications are immutable through the
// intake workflow.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusSubmitted
}

// PersonalParticulars is the step 1 field group.
type PersonalParticulars struct {
	Title       string `json:"title"`
	FamilyName  string `json:"family_name"`
	GivenNames  string `json:"given_names"`
	Region      string `json:"region"`
	Email       string `json:"email"`
	MobilePhone string `json:"mobile_phone,omitempty"`
	HomePhone   string `json:"home_phone,omitempty"`
}

// SubjectSelection is the step 2 field group.
type SubjectSelection struct {
	SubjectType string `json:"subject_type"`
	SubjectID   string `json:"subject_id"`
}

// Qualification is a step 3 repeated entry.
type Qualification struct {
	UniversityCollege string `json:"university_college"`
	DegreeType        string `json:"degree_type"`
	Subject           string `json:"subject,omitempty"`
	YearObtained      int    `json:"year_obtained,omitempty"`
}

// TeachingExperience is a step 4 repeated entry.
type TeachingExperience struct {
	SchoolName string `json:"school_name"`
	Position   string `json:"position"`
	Subject    string `json:"subject,omitempty"`
	FromYear   int    `json:"from_year,omitempty"`
	ToYear     int    `json:"to_year,omitempty"`
}

// WorkExperience is a step 5 repeated entry.
type WorkExperience struct {
	Employer string `json:"employer"`
	Role     string `json:"role"`
	FromYear int    `json:"from_year,omitempty"`
	ToYear   int    `json:"to_year,omitempty"`
}

// ExaminingExperience is a step 6 repeated entry.
type ExaminingExperience struct {
	ExamBoard    string `json:"exam_board"`
	SubjectLevel string `json:"subject_level"`
	Years        int    `json:"years,omitempty"`
}

// TrainingCourse is a step 7 repeated entry.
type TrainingCourse struct {
	CourseTitle string `json:"course_title"`
	Provider    string `json:"provider"`
	Year        int    `json:"year,omitempty"`
}

// AdditionalInfo is the step 8 free-text field group. No rule failure is
// possible here; both fields are optional.
type AdditionalInfo struct {
	Notes               string `json:"notes,omitempty"`
	SpecialRequirements string `json:"special_requirements,omitempty"`
}

// Record is the full accumulated application data across all steps. Fields
// belonging to a step not yet validated may be empty; fields belonging to a
// completed step satisfied that step's schema when completion was recorded.
type Record struct {
	ID                id.ApplicationID      `json:"id"`
	Status            Status                `json:"status"`
	Personal          PersonalParticulars   `json:"personal"`
	Subject           SubjectSelection      `json:"subject"`
	Qualifications    []Qualification       `json:"qualifications"`
	Teaching          []TeachingExperience  `json:"teaching_experience"`
	Work              []WorkExperience      `json:"work_experience"`
	Examining         []ExaminingExperience `json:"examining_experience"`
	Training          []TrainingCourse      `json:"training_courses"`
	Additional        AdditionalInfo        `json:"additional"`
	Documents         []Document            `json:"documents,omitempty"`
	LastCompletedStep int                   `json:"last_completed_step"`
	AmountPaid        int64                 `json:"amount_paid"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	SubmittedAt       *time.Time            `json:"submitted_at,omitempty"`
}

// StepData carries the slice of the record a single persistence call writes.
// Nil fields are left untouched server-side; non-nil fields replace the
// stored group wholesale, which is what makes repeated update calls with the
// same payload idempotent.
type StepData struct {
	Personal       *PersonalParticulars   `json:"personal,omitempty"`
	Subject        *SubjectSelection      `json:"subject,omitempty"`
	Qualifications *[]Qualification       `json:"qualifications,omitempty"`
	Teaching       *[]TeachingExperience  `json:"teaching_experience,omitempty"`
	Work           *[]WorkExperience      `json:"work_experience,omitempty"`
	Examining      *[]ExaminingExperience `json:"examining_experience,omitempty"`
	Training       *[]TrainingCourse      `json:"training_courses,omitempty"`
	Additional     *AdditionalInfo        `json:"additional,omitempty"`
}

// Apply merges the step slice into the record. Collections are replaced, not
// appended, so re-sending the same payload yields the same record.
func (d StepData) Apply(r *Record) {
	if d.Personal != nil {
		r.Personal = *d.Personal
	}
	if d.Subject != nil {
		r.Subject = *d.Subject
	}
	if d.Qualifications != nil {
		r.Qualifications = *d.Qualifications
	}
	if d.Teaching != nil {
		r.Teaching = *d.Teaching
	}
	if d.Work != nil {
		r.Work = *d.Work
	}
	if d.Examining != nil {
		r.Examining = *d.Examining
	}
	if d.Training != nil {
		r.Training = *d.Training
	}
	if d.Additional != nil {
		r.Additional = *d.Additional
	}
}

// IsEmpty reports whether the slice carries no field groups at all.
func (d StepData) IsEmpty() bool {
	return d.Personal == nil && d.Subject == nil && d.Qualifications == nil &&
		d.Teaching == nil && d.Work == nil && d.Examining == nil &&
		d.Training == nil && d.Additional == nil
}
