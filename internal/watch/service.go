// Package watch registers interest in full course sections.
package watch

import (
	"context"
	"errors"
	"log"

	"seatwatch-backend/internal/checker"
	"seatwatch-backend/internal/model"
	"seatwatch-backend/internal/parse"
	"seatwatch-backend/internal/store"
)

// Service validates registration requests and creates watches.
type Service struct {
	store   store.Store
	checker checker.Checker
}

// NewService creates a registration service.
func NewService(s store.Store, c checker.Checker) *Service {
	return &Service{store: s, checker: c}
}

// Register creates a watch for a full section. Every path that does not
// create a watch returns a *Rejection; nothing is written before the final
// Create, so a cancelled ctx never leaves a partial watch behind.
func (s *Service) Register(ctx context.Context, req Request, identity *model.Identity) (*model.Watch, error) {
	in, err := req.normalize()
	if err != nil {
		return nil, err
	}

	section, err := s.checker.GetSection(ctx, in.term, in.crn)
	if err != nil {
		return nil, &Rejection{Kind: CheckFailed, Reason: err.Error(), Err: err}
	}
	if section.AvailableSeats > 0 {
		return nil, &Rejection{Kind: SeatsAvailable, Seats: section.AvailableSeats}
	}

	dup, err := s.store.FindActiveDuplicate(ctx, in.email, in.crn, in.term)
	if err != nil {
		log.Printf("Error checking for duplicate watch %s/%d/%d: %v", in.email, in.term, in.crn, err)
		return nil, &Rejection{Kind: PersistenceFailure, Err: err}
	}
	if dup != nil {
		return nil, &Rejection{Kind: DuplicateWatch}
	}

	title, err := parse.ParseTitle(section.Title)
	if err != nil {
		log.Printf("Rejecting watch for term %d crn %d: %v", in.term, in.crn, err)
		return nil, &Rejection{Kind: MalformedSectionTitle, Err: err}
	}

	w := &model.Watch{
		Email:         in.email,
		Term:          in.term,
		CRN:           in.crn,
		Title:         section.Title,
		CourseTitle:   title.CourseTitle,
		CourseNumber:  title.CourseNumber,
		SectionNumber: title.SectionNumber,
		IsActive:      true,
	}
	if identity != nil && identity.UserID != "" {
		userID := identity.UserID
		w.UserID = &userID
	}

	if err := s.store.Create(ctx, w); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, &Rejection{Kind: PersistenceConflict, Err: err}
		}
		log.Printf("Error saving watch %s/%d/%d: %v", in.email, in.term, in.crn, err)
		return nil, &Rejection{Kind: PersistenceFailure, Err: err}
	}

	log.Printf("Created watch %s for %s on term %d crn %d", w.ID, w.Email, w.Term, w.CRN)
	return w, nil
}
