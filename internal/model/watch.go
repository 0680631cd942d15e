package model

import "time"

// Watch is a request to be notified when a full course section opens up.
type Watch struct {
	ID     string  `gorm:"primaryKey;size:36" json:"id"`
	Email  string  `gorm:"size:320;not null;uniqueIndex:idx_active_watch,where:is_active = true" json:"email"`
	UserID *string `gorm:"size:64;index" json:"userId,omitempty"`
	Term   int     `gorm:"not null;uniqueIndex:idx_active_watch,where:is_active = true" json:"term"`
	CRN    int     `gorm:"column:crn;not null;uniqueIndex:idx_active_watch,where:is_active = true" json:"crn"`

	Title         string `gorm:"size:512;not null" json:"title"`
	CourseTitle   string `gorm:"size:256;not null" json:"courseTitle"`
	CourseNumber  string `gorm:"size:64;not null" json:"courseNumber"`
	SectionNumber string `gorm:"size:32;not null" json:"sectionNumber"`

	IsActive    bool       `gorm:"not null;index" json:"isActive"`
	FulfilledAt *time.Time `json:"fulfilledAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`
}

// SectionKey identifies a section within a term.
type SectionKey struct {
	Term int
	CRN  int
}

// Section returns the term/CRN pair the watch is for.
func (w Watch) Section() SectionKey {
	return SectionKey{Term: w.Term, CRN: w.CRN}
}
