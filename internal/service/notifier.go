package service

import (
	"log"

	"memberly/internal/models"
)

// Notifier is implemented by the messaging transport: it tells the end user
// about activation, revokes group access on expiry and nags before renewal.
// The core calls it and never blocks its own state machine on delivery.
type Notifier interface {
	NotifyActivated(sub *models.Subscription) error
	NotifyExpired(sub *models.Subscription) error
	NotifyExpiringSoon(sub *models.Subscription, daysLeft int) error
}

// LogNotifier is the in-tree fallback used until a bot transport is wired in.
type LogNotifier struct{}

func (LogNotifier) NotifyActivated(sub *models.Subscription) error {
	log.Printf("[Notify] subscription %d activated for user %s", sub.ID, sub.UserRef)
	return nil
}

func (LogNotifier) NotifyExpired(sub *models.Subscription) error {
	log.Printf("[Notify] subscription %d expired for user %s", sub.ID, sub.UserRef)
	return nil
}

func (LogNotifier) NotifyExpiringSoon(sub *models.Subscription, daysLeft int) error {
	log.Printf("[Notify] subscription %d for user %s expires in %d days", sub.ID, sub.UserRef, daysLeft)
	return nil
}
