// Package issue provides the in-memory issue store for issuetracker.
//
// Issues are grouped by project name. A project exists as soon as the first
// issue is created under it; reading or mutating an unknown project behaves
// like an empty one.
//
// Store Operations:
//
//   - Create: validate required fields, assign an ID, append to the project
//   - List: filter a project's issues by exact field values
//   - Update: merge caller-supplied fields into one issue
//   - Delete: remove one issue by ID
//
// Update merges any key it is given. Schema keys are written to their typed
// field and unknown keys are kept in Issue.Extra, so a later List can filter
// on them. The merge lives in applyFields.
//
// All store errors are *Error values that unwrap to one of ErrValidation,
// ErrMissingID, ErrNoUpdateFields or ErrNotFound. Their Error() text is the
// message sent to API clients.
package issue
