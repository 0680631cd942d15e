package watch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies why a registration did not create a watch.
type Kind string

const (
	ValidationFailed      Kind = "validation_failed"
	CheckFailed           Kind = "check_failed"
	SeatsAvailable        Kind = "seats_available"
	DuplicateWatch        Kind = "duplicate_watch"
	MalformedSectionTitle Kind = "malformed_section_title"
	PersistenceConflict   Kind = "persistence_conflict"
	PersistenceFailure    Kind = "persistence_failure"
)

// Rejection is returned by Register when no watch was created.
type Rejection struct {
	Kind Kind

	// Fields maps each invalid input field to its message (ValidationFailed).
	Fields map[string]string
	// Reason is the upstream error text (CheckFailed).
	Reason string
	// Seats is the open seat count (SeatsAvailable).
	Seats int

	Err error
}

func (r *Rejection) Error() string {
	switch r.Kind {
	case ValidationFailed:
		keys := make([]string, 0, len(r.Fields))
		for k := range r.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+r.Fields[k])
		}
		return fmt.Sprintf("%s: %s", r.Kind, strings.Join(parts, "; "))
	case SeatsAvailable:
		return fmt.Sprintf("%s: %d", r.Kind, r.Seats)
	}
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Kind, r.Err)
	}
	return string(r.Kind)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// IsBusinessOutcome reports whether the rejection is an expected outcome of
// the watch rules rather than a fault in the request or the system.
func (r *Rejection) IsBusinessOutcome() bool {
	switch r.Kind {
	case SeatsAvailable, DuplicateWatch, PersistenceConflict:
		return true
	}
	return false
}

// Message is the sentence shown to the person who tried to register.
func (r *Rejection) Message() string {
	switch r.Kind {
	case ValidationFailed:
		return "Please correct the highlighted fields."
	case CheckFailed:
		return r.Reason
	case SeatsAvailable:
		if r.Seats == 1 {
			return "It looks like there is still 1 available seat in this section!"
		}
		return fmt.Sprintf("It looks like there are still %d available seats in this section!", r.Seats)
	case DuplicateWatch, PersistenceConflict:
		return "It looks like you've already submitted a request for this section."
	case MalformedSectionTitle:
		return "The registrar returned a section we could not read. Please try again later."
	default:
		return "An error occurred while saving your request."
	}
}

// AsRejection extracts a *Rejection from err.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// SuccessMessage is shown when a watch has been created.
func SuccessMessage(title string) string {
	return fmt.Sprintf("You will be notified when there is space available in %s", title)
}
