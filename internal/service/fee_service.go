package service

import (
	"log"
	"sync"
	"time"

	"memberly/internal/domain"
	"memberly/internal/repository"

	"github.com/shopspring/decimal"
)

// FeeService resolves the platform-wide fixed fee from system settings with a
// short-lived cache; fee changes apply to subsequent splits within one TTL.
type FeeService struct {
	settings *repository.SettingRepository
	fallback decimal.Decimal
	ttl      time.Duration

	mu        sync.Mutex
	cached    decimal.Decimal
	fetchedAt time.Time
}

func NewFeeService(settings *repository.SettingRepository, fallback decimal.Decimal, ttl time.Duration) *FeeService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &FeeService{settings: settings, fallback: fallback, ttl: ttl}
}

// MustFee parses a configured fee string; it panics at startup on garbage
// rather than silently charging nothing.
func MustFee(raw string) decimal.Decimal {
	fee, err := decimal.NewFromString(raw)
	if err != nil || fee.IsNegative() {
		panic("invalid platform fee: " + raw)
	}
	return fee
}

// PlatformFee returns the current fixed fee. Setting-store failures fall back
// to the configured default rather than blocking checkout.
func (s *FeeService) PlatformFee() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fetchedAt.IsZero() && time.Since(s.fetchedAt) < s.ttl {
		return s.cached
	}
	s.cached = s.load()
	s.fetchedAt = time.Now()
	return s.cached
}

func (s *FeeService) load() decimal.Decimal {
	raw, err := s.settings.Get(domain.SettingPlatformFee)
	if err != nil {
		return s.fallback
	}
	fee, err := decimal.NewFromString(raw)
	if err != nil || fee.IsNegative() {
		log.Printf("[Fee] invalid %s value %q, using fallback", domain.SettingPlatformFee, raw)
		return s.fallback
	}
	return fee
}
