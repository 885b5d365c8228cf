package issue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Wire field names.
const (
	FieldID         = "_id"
	FieldTitle      = "issue_title"
	FieldText       = "issue_text"
	FieldCreatedBy  = "created_by"
	FieldAssignedTo = "assigned_to"
	FieldStatusText = "status_text"
	FieldCreatedOn  = "created_on"
	FieldUpdatedOn  = "updated_on"
	FieldOpen       = "open"
)

// Issue is one tracked item within a project.
type Issue struct {
	// ID is assigned at creation and never reused.
	ID string

	Title     string
	Text      string
	CreatedBy string

	// AssignedTo and StatusText default to "".
	AssignedTo string
	StatusText string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Open is true until an update closes the issue.
	Open bool

	// Extra holds fields outside the schema that were merged in by Update.
	Extra map[string]any
}

// NewIssue holds the caller-supplied fields for Create.
type NewIssue struct {
	Title      string
	Text       string
	CreatedBy  string
	AssignedTo string
	StatusText string
}

// Fields maps wire field names to values for Update.
type Fields map[string]any

// Filters maps wire field names to the value an issue must hold for List.
type Filters map[string]any

// Result acknowledges a successful update or delete.
type Result struct {
	Result string `json:"result"`
	ID     string `json:"_id"`
}

// Result messages.
const (
	ResultUpdated = "successfully updated"
	ResultDeleted = "successfully deleted"
)

// wireIssue is the JSON layout of the schema fields.
type wireIssue struct {
	ID         string    `json:"_id"`
	Title      string    `json:"issue_title"`
	Text       string    `json:"issue_text"`
	CreatedBy  string    `json:"created_by"`
	AssignedTo string    `json:"assigned_to"`
	StatusText string    `json:"status_text"`
	CreatedOn  time.Time `json:"created_on"`
	UpdatedOn  time.Time `json:"updated_on"`
	Open       bool      `json:"open"`
}

// Value returns the value stored under a wire field name.
// The second result is false when the issue has no such field.
func (i *Issue) Value(field string) (any, bool) {
	switch field {
	case FieldID:
		return i.ID, true
	case FieldTitle:
		return i.Title, true
	case FieldText:
		return i.Text, true
	case FieldCreatedBy:
		return i.CreatedBy, true
	case FieldAssignedTo:
		return i.AssignedTo, true
	case FieldStatusText:
		return i.StatusText, true
	case FieldCreatedOn:
		return i.CreatedAt, true
	case FieldUpdatedOn:
		return i.UpdatedAt, true
	case FieldOpen:
		return i.Open, true
	}
	v, ok := i.Extra[field]
	return v, ok
}

// Clone returns a deep copy of the issue.
func (i *Issue) Clone() *Issue {
	c := *i
	if i.Extra != nil {
		c.Extra = make(map[string]any, len(i.Extra))
		for k, v := range i.Extra {
			c.Extra[k] = cloneValue(v)
		}
	}
	return &c
}

// cloneValue copies the container shapes produced by JSON decoding.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for n, e := range t {
			s[n] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// MarshalJSON writes the schema fields followed by any extra fields.
func (i Issue) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(wireIssue{
		ID:         i.ID,
		Title:      i.Title,
		Text:       i.Text,
		CreatedBy:  i.CreatedBy,
		AssignedTo: i.AssignedTo,
		StatusText: i.StatusText,
		CreatedOn:  i.CreatedAt,
		UpdatedOn:  i.UpdatedAt,
		Open:       i.Open,
	})
	if err != nil {
		return nil, err
	}
	if len(i.Extra) == 0 {
		return base, nil
	}

	extra, err := json.Marshal(i.Extra)
	if err != nil {
		return nil, fmt.Errorf("marshal extra fields: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(base) + len(extra))
	buf.Write(base[:len(base)-1])
	buf.WriteByte(',')
	buf.Write(extra[1:])
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the layout written by MarshalJSON.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var w wireIssue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range []string{
		FieldID, FieldTitle, FieldText, FieldCreatedBy, FieldAssignedTo,
		FieldStatusText, FieldCreatedOn, FieldUpdatedOn, FieldOpen,
	} {
		delete(all, k)
	}
	if len(all) == 0 {
		all = nil
	}

	*i = Issue{
		ID:         w.ID,
		Title:      w.Title,
		Text:       w.Text,
		CreatedBy:  w.CreatedBy,
		AssignedTo: w.AssignedTo,
		StatusText: w.StatusText,
		CreatedAt:  w.CreatedOn,
		UpdatedAt:  w.UpdatedOn,
		Open:       w.Open,
		Extra:      all,
	}
	return nil
}
