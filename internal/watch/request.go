package watch

import (
	"errors"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Request is a registration as submitted. CRN and term arrive as text so
// that malformed numbers are reported as field errors.
type Request struct {
	Email string `json:"email"`
	CRN   string `json:"crn"`
	Term  string `json:"term"`
}

var validTerm = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if _, err := strconv.Atoi(s); err != nil {
		return errors.New("Term is invalid.")
	}
	return nil
})

var positiveInt = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("must be an integer")
	}
	if n <= 0 {
		return errors.New("must be a positive integer")
	}
	return nil
})

// Validate checks every field and reports all failures together.
func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email,
			validation.Required.Error("Email address is required."),
			is.EmailFormat.Error("Email address is not valid."),
		),
		validation.Field(&r.CRN,
			validation.Required.Error("CRN is required."),
			is.Digit.Error("CRN must be an integer."),
			positiveInt,
		),
		validation.Field(&r.Term,
			validation.Required.Error("Term is required."),
			is.Digit.Error("Term is invalid."),
			validTerm,
		),
	)
}

// normalized is the validated request with parsed numbers.
type normalized struct {
	email string
	crn   int
	term  int
}

func (r Request) normalize() (normalized, error) {
	r.Email = strings.TrimSpace(r.Email)
	r.CRN = strings.TrimSpace(r.CRN)
	r.Term = strings.TrimSpace(r.Term)

	if err := r.Validate(); err != nil {
		return normalized{}, validationRejection(err)
	}

	crn, _ := strconv.Atoi(r.CRN)
	term, _ := strconv.Atoi(r.Term)
	return normalized{email: strings.ToLower(r.Email), crn: crn, term: term}, nil
}

func validationRejection(err error) *Rejection {
	fields := map[string]string{}
	var errs validation.Errors
	if errors.As(err, &errs) {
		for field, fieldErr := range errs {
			fields[field] = fieldErr.Error()
		}
	} else {
		fields["request"] = err.Error()
	}
	return &Rejection{Kind: ValidationFailed, Fields: fields, Err: err}
}
