package upload

import (
	"regexp"
	"unicode/utf8"

	"github.com/timmy/gallery/internal/domain"
)

// MaxFileSize is the exclusive upper bound on an image's size in bytes.
const MaxFileSize = 10 * 1024 * 1024

const (
	titleMinLength       = 2
	titleMaxLength       = 20
	descriptionMaxLength = 65
)

var acceptedTypes = regexp.MustCompile(`^image/(jpeg|png|gif)$`)

type rule struct {
	name    domain.Rule
	message string
	fails   func(d *domain.UploadDraft) bool
}

// Rules are evaluated in order per field; the first failing rule wins.
var (
	fileRules = []rule{
		{domain.RuleRequired, "File is required", func(d *domain.UploadDraft) bool {
			return d.File == nil
		}},
		{domain.RuleSize, "File must be smaller than 10MB", func(d *domain.UploadDraft) bool {
			return d.File.Size >= MaxFileSize
		}},
		{domain.RuleType, "Only PNG, JPEG and GIF files are accepted", func(d *domain.UploadDraft) bool {
			return !acceptedTypes.MatchString(d.File.ContentType)
		}},
	}

	titleRules = []rule{
		{domain.RuleRequired, "Title is required", func(d *domain.UploadDraft) bool {
			return d.Title == ""
		}},
		{domain.RuleMinLength, "Title must be at least 2 characters", func(d *domain.UploadDraft) bool {
			return utf8.RuneCountInString(d.Title) < titleMinLength
		}},
		{domain.RuleMaxLength, "Title must be at most 20 characters", func(d *domain.UploadDraft) bool {
			return utf8.RuneCountInString(d.Title) > titleMaxLength
		}},
	}

	descriptionRules = []rule{
		{domain.RuleRequired, "Description is required", func(d *domain.UploadDraft) bool {
			return d.Description == ""
		}},
		{domain.RuleMaxLength, "Description must be at most 65 characters", func(d *domain.UploadDraft) bool {
			return utf8.RuneCountInString(d.Description) > descriptionMaxLength
		}},
	}
)

// Validate runs every field rule against draft and returns the failing fields.
// It has no side effects; an empty result means all fields pass.
// The uploaded remote URL is not a field rule and is checked by Submit.
func Validate(draft domain.UploadDraft) domain.FieldErrors {
	errs := domain.FieldErrors{}
	check(errs, domain.FieldFile, fileRules, &draft)
	check(errs, domain.FieldTitle, titleRules, &draft)
	check(errs, domain.FieldDescription, descriptionRules, &draft)
	return errs
}

// ValidateFile runs only the file rules.
func ValidateFile(file *domain.File) (domain.FieldError, bool) {
	errs := domain.FieldErrors{}
	check(errs, domain.FieldFile, fileRules, &domain.UploadDraft{File: file})
	fe, failed := errs[domain.FieldFile]
	return fe, failed
}

func check(errs domain.FieldErrors, field string, rules []rule, d *domain.UploadDraft) {
	for _, r := range rules {
		if r.fails(d) {
			errs[field] = domain.FieldError{Rule: r.name, Message: r.message}
			return
		}
	}
}
