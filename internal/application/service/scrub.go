package service

import (
	"regexp"
	"strings"

	"intake/internal/application/models"
)

// Drafts imported from the legacy intake system carry free text with
// placeholder markers and control characters the old editor leaked. They are
// scrubbed on read so exports stay clean; the stored value is left untouched
// in case the original is ever needed.
var legacyNoise = regexp.MustCompile(`\[\[[A-Z_]+\]\]|[\x00-\x08\x0B\x0C\x0E-\x1F]`)

func scrubFreeText(s string) string {
	if s == "" {
		return s
	}
	cleaned := legacyNoise.ReplaceAllString(s, "")
	return strings.TrimSpace(cleaned)
}

func scrubRecord(rec *models.Record) {
	if rec == nil {
		return
	}
	rec.Additional.Notes = scrubFreeText(rec.Additional.Notes)
	rec.Additional.SpecialRequirements = scrubFreeText(rec.Additional.SpecialRequirements)
}
