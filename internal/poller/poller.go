// Package poller re-checks active watches and notifies watchers when seats open.
package poller

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"seatwatch-backend/config"
	"seatwatch-backend/internal/checker"
	"seatwatch-backend/internal/model"
	"seatwatch-backend/internal/notification"
	"seatwatch-backend/internal/store"
)

// Stats summarises one poll cycle.
type Stats struct {
	Watches        int
	Groups         int
	CheckFailures  int
	Notified       int
	NotifyFailures int
	MarkFailures   int
}

func (s *Stats) add(o Stats) {
	s.CheckFailures += o.CheckFailures
	s.Notified += o.Notified
	s.NotifyFailures += o.NotifyFailures
	s.MarkFailures += o.MarkFailures
}

// Poller periodically re-checks every active watch.
type Poller struct {
	cfg      *config.Config
	store    store.Store
	checker  checker.Checker
	notifier notification.Notifier
	now      func() time.Time
}

// NewPoller creates a poller. Section groups are checked concurrently, up to worker_pool.size at once.
func NewPoller(cfg *config.Config, s store.Store, c checker.Checker, n notification.Notifier) *Poller {
	return &Poller{
		cfg:      cfg,
		store:    s,
		checker:  c,
		notifier: n,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run starts the polling loop and blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	if !p.cfg.Poller.Enabled {
		log.Println("Poller is disabled. Not starting.")
		return
	}
	log.Printf("Starting poller, interval %s...", p.cfg.Poller.Interval)

	p.PollOnce(ctx)

	timer := time.NewTimer(p.cfg.Poller.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Poller shutting down.")
			return
		case <-timer.C:
			p.PollOnce(ctx)
			timer.Reset(p.cfg.Poller.Interval)
		}
	}
}

type group struct {
	key     model.SectionKey
	watches []model.Watch
}

// PollOnce runs a single check cycle. Failures are logged and counted, never returned.
func (p *Poller) PollOnce(ctx context.Context) Stats {
	log.Println("Executing poll cycle...")

	watches, err := p.store.FindAllActive(ctx)
	if err != nil {
		log.Printf("Poll cycle aborted: could not load active watches: %v", err)
		return Stats{}
	}

	groups := p.groupWatches(watches)
	stats := Stats{Watches: len(watches), Groups: len(groups)}
	if len(groups) == 0 {
		log.Println("Poll cycle finished: no active watches.")
		return stats
	}

	workers := pool.NewWithResults[Stats]().WithMaxGoroutines(p.cfg.WorkerPool.Size)
	for _, g := range groups {
		workers.Go(func() Stats {
			return p.checkGroup(ctx, g)
		})
	}
	for _, result := range workers.Wait() {
		stats.add(result)
	}

	log.Printf("Poll cycle finished: %d watches in %d sections, %d notified, %d check failures, %d notify failures.",
		stats.Watches, stats.Groups, stats.Notified, stats.CheckFailures, stats.NotifyFailures)
	return stats
}

// groupWatches buckets watches by section so each section is checked once.
func (p *Poller) groupWatches(watches []model.Watch) []group {
	if !p.cfg.Poller.GroupsBySection() {
		groups := make([]group, 0, len(watches))
		for _, w := range watches {
			groups = append(groups, group{key: w.Section(), watches: []model.Watch{w}})
		}
		return groups
	}

	byKey := make(map[model.SectionKey]*group)
	var order []model.SectionKey
	for _, w := range watches {
		g, ok := byKey[w.Section()]
		if !ok {
			g = &group{key: w.Section()}
			byKey[w.Section()] = g
			order = append(order, w.Section())
		}
		g.watches = append(g.watches, w)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].Term != order[j].Term {
			return order[i].Term < order[j].Term
		}
		return order[i].CRN < order[j].CRN
	})
	groups := make([]group, 0, len(order))
	for _, k := range order {
		groups = append(groups, *byKey[k])
	}
	return groups
}

// checkGroup checks one section and fulfils its watches if a seat is open.
func (p *Poller) checkGroup(ctx context.Context, g group) Stats {
	var stats Stats

	checkCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Poller.CheckTimeoutSeconds)*time.Second)
	section, err := p.checker.GetSection(checkCtx, g.key.Term, g.key.CRN)
	cancel()
	if err != nil {
		log.Printf("Error checking term %d crn %d (%d watches stay active): %v", g.key.Term, g.key.CRN, len(g.watches), err)
		stats.CheckFailures++
		return stats
	}
	if section.AvailableSeats <= 0 {
		return stats
	}

	log.Printf("Term %d crn %d has %d open seats, notifying %d watchers", g.key.Term, g.key.CRN, section.AvailableSeats, len(g.watches))
	for _, w := range g.watches {
		if ctx.Err() != nil {
			return stats
		}
		p.fulfil(ctx, w, &stats)
	}
	return stats
}

// fulfil notifies, then marks the watch fulfilled. A watch is only
// deactivated once its watcher has been told.
func (p *Poller) fulfil(ctx context.Context, w model.Watch, stats *Stats) {
	notifyCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Poller.NotifyTimeoutSeconds)*time.Second)
	err := p.notifier.Notify(notifyCtx, w.Email, w.Title)
	cancel()
	if err != nil {
		log.Printf("Error notifying %s for watch %s; will retry next cycle: %v", w.Email, w.ID, err)
		stats.NotifyFailures++
		return
	}

	if err := p.store.MarkFulfilled(ctx, w.ID, p.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("Watch %s was deactivated while being notified", w.ID)
		} else {
			log.Printf("Error marking watch %s fulfilled: %v", w.ID, err)
			stats.MarkFailures++
		}
	}
	stats.Notified++
}
