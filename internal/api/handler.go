package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"seatwatch-backend/internal/checker"
	"seatwatch-backend/internal/store"
	"seatwatch-backend/internal/watch"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	watches *watch.Service
	store   store.Store
	push    store.PushStore
	checker checker.Checker
	webpush *webpush.Options
	timeout time.Duration
}

// NewHandler creates a new API handler. push and webpushOptions may be nil
// when web push is not configured.
func NewHandler(svc *watch.Service, s store.Store, c checker.Checker, push store.PushStore, webpushOptions *webpush.Options, timeout time.Duration) *Handler {
	return &Handler{
		watches: svc,
		store:   s,
		push:    push,
		checker: c,
		webpush: webpushOptions,
		timeout: timeout,
	}
}
