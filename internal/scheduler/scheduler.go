package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	"github.com/cinevault/cinevault-api/internal/service"
)

type blacklistPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Config tunes the periodic background scans.
type Config struct {
	ScanInterval   time.Duration
	ReminderWindow time.Duration
}

// Scheduler runs the periodic maintenance loops: premium expiry reminders and
// blacklist cleanup.
type Scheduler struct {
	subscriptions *service.SubscriptionService
	notifications *service.NotificationService
	blacklist     blacklistPurger
	logger        *zap.Logger
	config        Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	reminded map[string]time.Time
}

// New builds a scheduler.
func New(subscriptions *service.SubscriptionService, notifications *service.NotificationService, blacklist blacklistPurger, logger *zap.Logger, config Config) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ScanInterval <= 0 {
		config.ScanInterval = time.Hour
	}
	if config.ReminderWindow <= 0 {
		config.ReminderWindow = 72 * time.Hour
	}
	return &Scheduler{
		subscriptions: subscriptions,
		notifications: notifications,
		blacklist:     blacklist,
		logger:        logger,
		config:        config,
		reminded:      make(map[string]time.Time),
	}
}

// Start launches the scan loop until Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.config.ScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
	s.logger.Info("scheduler started",
		zap.Duration("scan_interval", s.config.ScanInterval),
		zap.Duration("reminder_window", s.config.ReminderWindow))
}

// Stop halts the scan loop and waits for it to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.remindExpiring(ctx)
	s.purgeBlacklist(ctx)
}

// remindExpiring notifies premium users whose window ends inside the reminder
// window. Each expiry timestamp is reminded at most once.
func (s *Scheduler) remindExpiring(ctx context.Context) {
	subs, err := s.subscriptions.ExpiringWithin(ctx, s.config.ReminderWindow)
	if err != nil {
		s.logger.Error("expiry scan failed", zap.Error(err))
		return
	}

	for i := range subs {
		sub := &subs[i]
		if sub.ExpiresAt == nil {
			continue
		}
		if s.alreadyReminded(sub) {
			continue
		}
		s.notifications.NotifyExpiryReminder(ctx, sub.UserID, *sub.ExpiresAt)
		s.markReminded(sub)
	}

	if len(subs) > 0 {
		s.logger.Info("expiry reminders processed", zap.Int("candidates", len(subs)))
	}
}

func (s *Scheduler) purgeBlacklist(ctx context.Context) {
	purged, err := s.blacklist.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("blacklist purge failed", zap.Error(err))
		return
	}
	if purged > 0 {
		s.logger.Info("expired blacklist entries purged", zap.Int64("count", purged))
	}
}

func (s *Scheduler) alreadyReminded(sub *models.Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.reminded[sub.ID]
	return ok && last.Equal(*sub.ExpiresAt)
}

func (s *Scheduler) markReminded(sub *models.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminded[sub.ID] = *sub.ExpiresAt
}
