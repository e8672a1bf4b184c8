package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dormduty/dormduty/internal/clock"
	"github.com/dormduty/dormduty/internal/model"
	"github.com/dormduty/dormduty/internal/recurrence"
	"github.com/dormduty/dormduty/internal/store"
)

// Scheduler periodically scans active chores and reminds assignees of
// anything due today. The sent log keeps each chore to one reminder per day.
type Scheduler struct {
	mu       sync.RWMutex
	service  *Service
	push     *store.PushStore
	chores   *store.ChoreStore
	members  *store.MembershipStore
	clock    clock.Clock
	logger   *slog.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(svc *Service, pushStore *store.PushStore, choreStore *store.ChoreStore, memberStore *store.MembershipStore, clk clock.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		push:     pushStore,
		chores:   choreStore,
		members:  memberStore,
		clock:    clk,
		logger:   logger,
		interval: 60 * time.Second,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	chores, err := s.chores.ListActive()
	if err != nil {
		s.logger.Error("scheduler: list chores", "error", err)
		return
	}

	now := s.clock.Now()
	for _, c := range chores {
		s.remindIfDue(c, now)
	}
}

func (s *Scheduler) remindIfDue(c model.Chore, now time.Time) {
	rule, err := recurrence.ParseRule(c.Frequency, c.FrequencyValue, c.DayOfWeek)
	if err != nil {
		s.logger.Error("scheduler: bad schedule", "chore_id", c.ID, "error", err)
		return
	}
	due := rule.DueStatus(c.StartDate, c.LastCompletedAt, now)
	if due.NextDueAt == nil {
		return
	}
	// Remind on the due day itself and while overdue.
	endOfToday := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
	if due.NextDueAt.After(endOfToday) {
		return
	}

	refID := fmt.Sprintf("chore-%d", c.ID)
	sent, err := s.push.WasSent(model.NotifTypeChoreDue, refID, now)
	if err != nil {
		s.logger.Error("scheduler: check sent log", "error", err)
		return
	}
	if sent {
		return
	}

	body := fmt.Sprintf("%q is due today", c.Name)
	if due.Overdue {
		body = fmt.Sprintf("%q is overdue", c.Name)
	}
	payload := Payload{
		Title: "Chore Reminder",
		Body:  body,
		Tag:   refID,
	}

	for _, mid := range c.AssignedMembershipIDs {
		m, err := s.members.GetByID(mid)
		if err != nil || m == nil || !m.IsActive {
			continue
		}
		subs, err := s.push.ListByUser(m.UserID)
		if err != nil {
			s.logger.Error("scheduler: list subscriptions", "error", err)
			continue
		}
		for _, sub := range subs {
			if err := s.service.Send(&sub, payload); err != nil {
				if errors.Is(err, ErrExpired) {
					s.push.DeleteByEndpoint(sub.Endpoint)
					continue
				}
				s.logger.Error("scheduler: send reminder", "chore_id", c.ID, "error", err)
			}
		}
	}

	if err := s.push.MarkSent(model.NotifTypeChoreDue, refID, now); err != nil {
		s.logger.Error("scheduler: mark sent", "error", err)
	}
}
