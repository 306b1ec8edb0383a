// Package schema declares, per step ordinal, which subset of the record a
// step owns and the validation rules for it. Validation only ever runs for
// the step being left; steps not yet reached are never validated.
package schema

import (
	"fmt"

	"github.com/asaskevich/govalidator"

	"intake/internal/application/models"
	dErrors "intake/pkg/domain-errors"
)

// Step ordinals. The form runs 1..FinalStep; LastFormStep is the highest
// step that still persists form data (save-and-exit clamps to it).
const (
	FirstStep    = 1
	LastFormStep = 9
	FinalStep    = 11

	StepPersonal       = 1
	StepSubject        = 2
	StepQualifications = 3
	StepTeaching       = 4
	StepWork           = 5
	StepExamining      = 6
	StepTraining       = 7
	StepAdditional     = 8
	StepDocuments      = 9
	StepPayment        = 10
	StepReview         = 11
)

// Kind distinguishes how progress out of a step is decided.
type Kind string

const (
	// KindSchema: leaving the step runs a field rule-set.
	KindSchema Kind = "schema"
	// KindCollection: optional repeated entries; empty is valid, present
	// entries are validated individually.
	KindCollection Kind = "collection"
	// KindDocuments / KindPayment: no schema; a gate decides.
	KindDocuments Kind = "documents"
	KindPayment   Kind = "payment"
	// KindReview: terminal; the only action is submit.
	KindReview Kind = "review"
)

// Step describes one ordinal section of the form.
type Step struct {
	Ordinal  int
	Title    string
	Kind     Kind
	validate func(*models.Record) *dErrors.Error
}

// Gated reports whether leaving the step is decided by a gate rather than a
// field rule-set.
func (s Step) Gated() bool {
	return s.Kind == KindDocuments || s.Kind == KindPayment
}

var steps = map[int]Step{
	StepPersonal:       {Ordinal: StepPersonal, Title: "Personal particulars", Kind: KindSchema, validate: validatePersonal},
	StepSubject:        {Ordinal: StepSubject, Title: "Subject selection", Kind: KindSchema, validate: validateSubject},
	StepQualifications: {Ordinal: StepQualifications, Title: "Qualifications", Kind: KindCollection, validate: validateQualifications},
	StepTeaching:       {Ordinal: StepTeaching, Title: "Teaching experience", Kind: KindCollection, validate: validateTeaching},
	StepWork:           {Ordinal: StepWork, Title: "Work experience", Kind: KindCollection, validate: validateWork},
	StepExamining:      {Ordinal: StepExamining, Title: "Examining experience", Kind: KindCollection, validate: validateExamining},
	StepTraining:       {Ordinal: StepTraining, Title: "Training courses", Kind: KindCollection, validate: validateTraining},
	StepAdditional:     {Ordinal: StepAdditional, Title: "Additional information", Kind: KindSchema, validate: nil},
	StepDocuments:      {Ordinal: StepDocuments, Title: "Supporting documents", Kind: KindDocuments},
	StepPayment:        {Ordinal: StepPayment, Title: "Payment", Kind: KindPayment},
	StepReview:         {Ordinal: StepReview, Title: "Review and submit", Kind: KindReview},
}

// Lookup returns the step declaration for an ordinal.
func Lookup(ordinal int) (Step, bool) {
	s, ok := steps[ordinal]
	return s, ok
}

// Validate runs the rule-set for exactly one step against the record.
// Steps without a rule-set (free text, gates, review) always pass.
func Validate(ordinal int, rec *models.Record) error {
	s, ok := steps[ordinal]
	if !ok {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown step %d", ordinal)
	}
	if s.validate == nil {
		return nil
	}
	if err := s.validate(rec); err != nil {
		return err
	}
	return nil
}

func validatePersonal(rec *models.Record) *dErrors.Error {
	var err *dErrors.Error
	p := rec.Personal

	if p.Title == "" {
		err = dErrors.Add(err, "title", "title is required")
	}
	if p.FamilyName == "" {
		err = dErrors.Add(err, "family_name", "family name is required")
	}
	if p.GivenNames == "" {
		err = dErrors.Add(err, "given_names", "given names are required")
	}
	if p.Region == "" {
		err = dErrors.Add(err, "region", "region is required")
	}
	if p.Email == "" {
		err = dErrors.Add(err, "email", "email is required")
	} else if !govalidator.IsEmail(p.Email) {
		err = dErrors.Add(err, "email", "email is not valid")
	}
	if p.MobilePhone == "" && p.HomePhone == "" {
		err = dErrors.Add(err, "mobile_phone", "at least one contact number is required")
	}

	return err
}

func validateSubject(rec *models.Record) *dErrors.Error {
	var err *dErrors.Error

	if rec.Subject.SubjectType == "" {
		err = dErrors.Add(err, "subject_type", "subject type is required")
	}
	if rec.Subject.SubjectID == "" {
		err = dErrors.Add(err, "subject_id", "subject is required")
	}

	return err
}

// Collection steps: an empty collection is always valid; entries the
// applicant added must each carry their required sub-fields.

func validateQualifications(rec *models.Record) *dErrors.Error {
	var err *dErrors.Error
	for i, q := range rec.Qualifications {
		if q.UniversityCollege == "" {
			err = dErrors.Add(err, entryPath("qualifications", i, "university_college"), "institution name is required")
		}
		if q.DegreeType == "" {
			err = dErrors.Add(err, entryPath("qualifications", i, "degree_type"), "degree type is required")
		}
	}
	return err
}

func validateTeaching(rec *models.Record) *dErrors.Error {
	var err *dErrors.Error
	for i, t := range rec.Teaching {
		if t.SchoolName == "" {
			err = dErrors.Add(err, entryPath("teaching_experience", i, "school_name"), "school name is required")
		}
		if t.Position == "" {
			err = dErrors.Add(err, entryPath("teaching_experience", i, "position"), "position is required")
		}
	}
	return err
}

func validateWork(rec *models.Record) *dErrors.Error {
	var err *dErrors.Error
	for i, w := range rec.Work {
		if w.Employer == "" {
			err = dErrors.Add(err, entryPath("work_experience", i, "employer"), "employer is required")
		}
		if w.Role == "" {
			err = dErrors.Add(err, entryPath("work_experience", i, "role"), "role is required")
		}
	}
	return err
}

func validateExamining(rec *models.Record) *dErrors.Error {
	var err *dErrors.Error
	for i, e := range rec.Examining {
		if e.ExamBoard == "" {
			err = dErrors.Add(err, entryPath("examining_experience", i, "exam_board"), "examining body is required")
		}
		if e.SubjectLevel == "" {
			err = dErrors.Add(err, entryPath("examining_experience", i, "subject_level"), "subject and level are required")
		}
	}
	return err
}

func validateTraining(rec *models.Record) *dErrors.Error {
	var err *dErrors.Error
	for i, c := range rec.Training {
		if c.CourseTitle == "" {
			err = dErrors.Add(err, entryPath("training_courses", i, "course_title"), "course title is required")
		}
		if c.Provider == "" {
			err = dErrors.Add(err, entryPath("training_courses", i, "provider"), "provider is required")
		}
	}
	return err
}

func entryPath(collection string, index int, field string) string {
	return fmt.Sprintf("%s[%d].%s", collection, index, field)
}
