package service

import (
	"log"
	"math"
	"sync"
	"time"

	"memberly/internal/domain"
	"memberly/internal/repository"

	"github.com/robfig/cron/v3"
)

// Sweeper lapses subscriptions whose validity window has passed and sends
// expiry reminders. Transitions are guarded on the current status, so
// overlapping runs and late-arriving webhooks cannot double-process a row.
type Sweeper struct {
	subs     *repository.SubscriptionRepository
	notifier Notifier
	cron     *cron.Cron

	expireSchedule string
	remindSchedule string
	remindDays     int

	mu      sync.Mutex // serializes overlapping sweep runs in-process
}

func NewSweeper(subs *repository.SubscriptionRepository, notifier Notifier, expireSchedule, remindSchedule string, remindDays int) *Sweeper {
	if expireSchedule == "" {
		expireSchedule = "*/5 * * * *"
	}
	if remindSchedule == "" {
		remindSchedule = "0 9 * * *"
	}
	if remindDays <= 0 {
		remindDays = 3
	}
	return &Sweeper{
		subs:           subs,
		notifier:       notifier,
		cron:           cron.New(),
		expireSchedule: expireSchedule,
		remindSchedule: remindSchedule,
		remindDays:     remindDays,
	}
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.expireSchedule, func() {
		if _, err := s.SweepExpired(time.Now()); err != nil {
			log.Printf("[Sweeper] expire sweep failed: %v", err)
		}
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.remindSchedule, func() {
		if err := s.RemindExpiring(time.Now()); err != nil {
			log.Printf("[Sweeper] reminder pass failed: %v", err)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// SweepExpired transitions lapsed active subscriptions to expired and asks the
// transport to revoke access. A failure on one row never aborts the batch; it
// returns how many rows this run expired.
func (s *Sweeper) SweepExpired(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.subs.FindExpired(now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range subs {
		sub := &subs[i]
		moved, err := s.subs.UpdateStatusIf(sub.ID, domain.SubActive, domain.SubExpired)
		if err != nil {
			log.Printf("[Sweeper] subscription %d: %v", sub.ID, err)
			continue
		}
		if !moved {
			// another run or an explicit cancel got here first
			continue
		}
		expired++
		if err := s.notifier.NotifyExpired(sub); err != nil {
			log.Printf("[Sweeper] revoke notification for subscription %d failed: %v", sub.ID, err)
		}
	}
	if expired > 0 {
		log.Printf("[Sweeper] expired %d subscription(s)", expired)
	}
	return expired, nil
}

// RemindExpiring notifies users whose access ends within the reminder window.
func (s *Sweeper) RemindExpiring(now time.Time) error {
	subs, err := s.subs.FindExpiringBetween(now, now.AddDate(0, 0, s.remindDays))
	if err != nil {
		return err
	}
	for i := range subs {
		sub := &subs[i]
		if sub.ExpiresAt == nil {
			continue
		}
		daysLeft := int(math.Ceil(sub.ExpiresAt.Sub(now).Hours() / 24))
		if daysLeft < 0 {
			continue
		}
		if err := s.notifier.NotifyExpiringSoon(sub, daysLeft); err != nil {
			log.Printf("[Sweeper] reminder for subscription %d failed: %v", sub.ID, err)
		}
	}
	return nil
}
