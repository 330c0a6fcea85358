package domain

// Form field names used as FieldErrors keys.
const (
	FieldFile        = "file"
	FieldTitle       = "title"
	FieldDescription = "description"
)

// Rule identifies which validation rule rejected a field.
type Rule string

const (
	RuleRequired  Rule = "required"
	RuleSize      Rule = "size"
	RuleType      Rule = "type"
	RuleMinLength Rule = "minLength"
	RuleMaxLength Rule = "maxLength"
)

// FieldError is the first failing rule for a single field.
type FieldError struct {
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

// FieldErrors maps a field name to its failure. Passing fields are absent.
type FieldErrors map[string]FieldError

// File is a candidate image selected by the user.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// UploadDraft is the in-progress upload form state.
//
// RemoteURL is only set after the blob upload for File has succeeded.
type UploadDraft struct {
	File        *File
	RemoteURL   string
	Title       string
	Description string
	FieldErrors FieldErrors
}

// Clone returns a copy that shares no maps with d.
func (d UploadDraft) Clone() UploadDraft {
	out := d
	if d.FieldErrors != nil {
		out.FieldErrors = make(FieldErrors, len(d.FieldErrors))
		for k, v := range d.FieldErrors {
			out.FieldErrors[k] = v
		}
	}
	return out
}
