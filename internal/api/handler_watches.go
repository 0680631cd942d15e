package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"seatwatch-backend/internal/model"
	"seatwatch-backend/internal/mw"
	"seatwatch-backend/internal/store"
	"seatwatch-backend/internal/watch"
)

// flexString accepts a JSON string or number, so "crn": 12345 and
// "crn": "12345" bind the same way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type postWatchRequest struct {
	Email string     `json:"email" form:"email"`
	CRN   flexString `json:"crn" form:"crn"`
	Term  flexString `json:"term" form:"term"`
}

type watchResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Term          int        `json:"term"`
	CRN           int        `json:"crn"`
	Title         string     `json:"title"`
	CourseTitle   string     `json:"courseTitle"`
	CourseNumber  string     `json:"courseNumber"`
	SectionNumber string     `json:"sectionNumber"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
	FulfilledAt   *time.Time `json:"fulfilledAt,omitempty"`
}

func toWatchResponse(w model.Watch) watchResponse {
	return watchResponse{
		ID:            w.ID,
		Email:         w.Email,
		Term:          w.Term,
		CRN:           w.CRN,
		Title:         w.Title,
		CourseTitle:   w.CourseTitle,
		CourseNumber:  w.CourseNumber,
		SectionNumber: w.SectionNumber,
		IsActive:      w.IsActive,
		CreatedAt:     w.CreatedAt,
		FulfilledAt:   w.FulfilledAt,
	}
}

// PostWatch handles the POST /api/watches request.
func (h *Handler) PostWatch(c *gin.Context) {
	var req postWatchRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	w, err := h.watches.Register(ctx, watch.Request{
		Email: req.Email,
		CRN:   string(req.CRN),
		Term:  string(req.Term),
	}, mw.IdentityFrom(c))
	if err != nil {
		writeRejection(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"watch":   toWatchResponse(*w),
		"message": watch.SuccessMessage(w.Title),
	})
}

func writeRejection(c *gin.Context, err error) {
	r, ok := watch.AsRejection(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	body := gin.H{
		"rejection": r.Kind,
		"message":   r.Message(),
	}
	var status int
	switch r.Kind {
	case watch.ValidationFailed:
		status = http.StatusBadRequest
		body["fields"] = r.Fields
	case watch.CheckFailed:
		status = http.StatusBadGateway
	case watch.SeatsAvailable:
		status = http.StatusUnprocessableEntity
		body["seats"] = r.Seats
	case watch.DuplicateWatch, watch.PersistenceConflict:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}
	c.JSON(status, body)
}

// ListWatches handles the GET /api/watches request.
func (h *Handler) ListWatches(c *gin.Context) {
	identity := mw.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}

	watches, err := h.store.FindAllActiveFor(c.Request.Context(), *identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve watches"})
		return
	}

	responses := make([]watchResponse, 0, len(watches))
	for _, w := range watches {
		responses = append(responses, toWatchResponse(w))
	}
	c.JSON(http.StatusOK, responses)
}

// CancelWatch handles the DELETE /api/watches/:id request. Only the owner may cancel.
func (h *Handler) CancelWatch(c *gin.Context) {
	identity := mw.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}

	id := c.Param("id")
	watches, err := h.store.FindAllActiveFor(c.Request.Context(), *identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve watches"})
		return
	}
	owned := false
	for _, w := range watches {
		if w.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "watch not found"})
		return
	}

	if err := h.store.Cancel(c.Request.Context(), id, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "watch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func pathInt(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
