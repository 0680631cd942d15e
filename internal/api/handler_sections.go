package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"seatwatch-backend/internal/checker"
	"seatwatch-backend/internal/parse"
)

type sectionResponse struct {
	Term           int    `json:"term"`
	CRN            int    `json:"crn"`
	AvailableSeats int    `json:"availableSeats"`
	Title          string `json:"title"`
	CourseTitle    string `json:"courseTitle,omitempty"`
	CourseNumber   string `json:"courseNumber,omitempty"`
	SectionNumber  string `json:"sectionNumber,omitempty"`
}

// GetSection handles the GET /api/sections/:term/:crn request.
func (h *Handler) GetSection(c *gin.Context) {
	term, ok := pathInt(c, "term")
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid term"})
		return
	}
	crn, ok := pathInt(c, "crn")
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid CRN"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	section, err := h.checker.GetSection(ctx, term, crn)
	if errors.Is(err, checker.ErrSectionNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	resp := sectionResponse{
		Term:           term,
		CRN:            crn,
		AvailableSeats: section.AvailableSeats,
		Title:          section.Title,
	}
	if parsed, err := parse.ParseTitle(section.Title); err == nil {
		resp.CourseTitle = parsed.CourseTitle
		resp.CourseNumber = parsed.CourseNumber
		resp.SectionNumber = parsed.SectionNumber
	}
	c.JSON(http.StatusOK, resp)
}
