package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/cinevault/cinevault-api/internal/models"
	"github.com/cinevault/cinevault-api/pkg/jobs"
)

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// Dispatcher delivers a single push message to a device.
type Dispatcher interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// FCMDispatcher sends pushes through the Firebase Cloud Messaging HTTP v1 API
// using a service-account token source.
type FCMDispatcher struct {
	endpoint string
	tokens   oauth2.TokenSource
	client   *http.Client
}

// NewFCMDispatcher reads the service-account credentials file and prepares an
// authenticated sender for the given Firebase project.
func NewFCMDispatcher(ctx context.Context, projectID, credentialsFile string, timeout time.Duration) (*FCMDispatcher, error) {
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read fcm credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("parse fcm credentials: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FCMDispatcher{
		endpoint: fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", projectID),
		tokens:   creds.TokenSource,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Send delivers one notification. A non-2xx response is an error.
func (d *FCMDispatcher) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	payload := map[string]interface{}{
		"message": map[string]interface{}{
			"token": deviceToken,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode fcm message: %w", err)
	}

	token, err := d.tokens.Token()
	if err != nil {
		return fmt.Errorf("fetch fcm access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("fcm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("fcm responded %d: %s", resp.StatusCode, detail)
	}
	return nil
}

type notificationRecipients interface {
	PremiumRecipients(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type pushMessage struct {
	DeviceToken string
	Title       string
	Body        string
	Data        map[string]string
}

// NotificationService fans push notifications out through a background worker
// queue. Delivery failures are logged and retried, never surfaced to callers.
type NotificationService struct {
	dispatcher Dispatcher
	users      notificationRecipients
	queue      *jobs.Queue
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewNotificationService wires the queue and starts its workers. A nil
// dispatcher disables delivery, leaving enqueue operations as no-ops.
func NewNotificationService(ctx context.Context, dispatcher Dispatcher, users notificationRecipients, metrics *MetricsService, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		dispatcher: dispatcher,
		users:      users,
		metrics:    metrics,
		logger:     logger,
	}
	if dispatcher != nil {
		cfg.Logger = logger
		s.queue = jobs.NewQueue("notifications", s.deliver, cfg)
		s.queue.Start(ctx)
	}
	return s
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Enabled reports whether a dispatcher is configured.
func (s *NotificationService) Enabled() bool {
	return s != nil && s.dispatcher != nil && s.queue != nil
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(pushMessage)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	err := s.dispatcher.Send(ctx, msg.DeviceToken, msg.Title, msg.Body, msg.Data)
	if s.metrics != nil {
		s.metrics.RecordNotification(err == nil)
	}
	return err
}

func (s *NotificationService) enqueue(msg pushMessage) {
	if !s.Enabled() {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "push",
		Payload: msg,
	})
	if err != nil {
		s.logger.Warn("notification queue is full, dropping message", zap.Error(err))
	}
}

// NotifyPremiumMovie announces a new premium title to every active premium
// subscriber with a registered device.
func (s *NotificationService) NotifyPremiumMovie(ctx context.Context, movie *models.Movie) {
	if !s.Enabled() {
		return
	}
	recipients, err := s.users.PremiumRecipients(ctx)
	if err != nil {
		s.logger.Error("failed to load premium notification recipients", zap.Error(err))
		return
	}
	for _, user := range recipients {
		if user.DeviceToken == nil {
			continue
		}
		s.enqueue(pushMessage{
			DeviceToken: *user.DeviceToken,
			Title:       "New premium release",
			Body:        fmt.Sprintf("%s is now streaming. Watch it with your premium plan.", movie.Title),
			Data: map[string]string{
				"movie_id": movie.ID,
				"type":     "premium_movie",
			},
		})
	}
	s.logger.Info("premium release notifications queued",
		zap.String("movie_id", movie.ID),
		zap.Int("recipients", len(recipients)))
}

// NotifyUser sends a message to a single user's registered device, if any.
func (s *NotificationService) NotifyUser(ctx context.Context, userID, title, body string, data map[string]string) {
	if !s.Enabled() {
		return
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load notification recipient", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if user.DeviceToken == nil || !user.NotificationEnabled {
		return
	}
	s.enqueue(pushMessage{
		DeviceToken: *user.DeviceToken,
		Title:       title,
		Body:        body,
		Data:        data,
	})
}

// NotifyUpgrade confirms a successful premium upgrade.
func (s *NotificationService) NotifyUpgrade(ctx context.Context, userID string, expiresAt time.Time) {
	s.NotifyUser(ctx, userID, "Welcome to premium",
		fmt.Sprintf("Your premium plan is active until %s.", expiresAt.Format("Jan 2, 2006")),
		map[string]string{"type": "subscription_upgraded"})
}

// NotifyExpiryReminder warns a user their premium window ends soon.
func (s *NotificationService) NotifyExpiryReminder(ctx context.Context, userID string, expiresAt time.Time) {
	s.NotifyUser(ctx, userID, "Your premium plan is ending soon",
		fmt.Sprintf("Premium access expires on %s. Renew to keep watching.", expiresAt.Format("Jan 2, 2006")),
		map[string]string{"type": "subscription_expiring"})
}
