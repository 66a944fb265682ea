package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/notify"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// Payload is the JSON sent to the push service.
type Payload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	URL       string `json:"url,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Sound     string `json:"sound,omitempty"`
	Tier      int    `json:"tier,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
}

// PayloadFor maps an expiry notification onto the push payload. The tag is
// the tier channel so the client can group and style alerts per tier.
func PayloadFor(n notify.Notification) Payload {
	return Payload{
		Title:     n.Title,
		Body:      n.Body,
		URL:       n.URL,
		Tag:       n.Channel,
		Sound:     n.Sound,
		Tier:      int(n.Tier),
		ProductID: n.ProductID,
	}
}

// Subscriptions is where the service finds and prunes subscribers.
type Subscriptions interface {
	List(ctx context.Context) ([]model.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Service handles sending web push notifications.
type Service struct {
	publicKey  string
	privateKey string
	subscriber string
	subs       Subscriptions
	httpClient webpush.HTTPClient
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient overrides the client used to reach push endpoints.
func WithHTTPClient(c webpush.HTTPClient) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithSubscriber sets the contact placed in the VAPID token.
func WithSubscriber(sub string) Option {
	return func(s *Service) { s.subscriber = sub }
}

// NewService creates a new push service with VAPID keys.
func NewService(publicKey, privateKey string, subs Subscriptions, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: "mailto:noreply@larder.local",
		subs:       subs,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Configured reports whether VAPID keys are set.
func (s *Service) Configured() bool {
	return s.publicKey != "" && s.privateKey != ""
}

func (s *Service) Name() string { return "webpush" }

// Send sends a push notification to a subscription.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	urgency := webpush.UrgencyNormal
	if payload.Tier == int(notify.Tier1) {
		urgency = webpush.UrgencyHigh
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		HTTPClient:      s.httpClient,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subscriber,
		TTL:             86400,
		Urgency:         urgency,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// Broadcast sends payload to every stored subscription. Expired
// subscriptions are removed; other failures are logged. It returns the
// number of successful sends.
func (s *Service) Broadcast(ctx context.Context, payload Payload) (int, error) {
	subs, err := s.subs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list push subscriptions: %w", err)
	}

	sent := 0
	for i := range subs {
		sub := &subs[i]
		if err := s.Send(ctx, sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.logger.Info("removing expired push subscription", "id", sub.ID)
				if err := s.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
					s.logger.Error("delete expired push subscription", "id", sub.ID, "error", err)
				}
			} else {
				s.logger.Warn("send push notification", "id", sub.ID, "error", err)
			}
			continue
		}
		sent++
	}
	return sent, nil
}

// Notify delivers an expiry notification to every subscriber.
func (s *Service) Notify(ctx context.Context, n notify.Notification) error {
	if !s.Configured() {
		return nil
	}
	_, err := s.Broadcast(ctx, PayloadFor(n))
	return err
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.FillBytes(make([]byte, 32)))

	return publicKey, privateKey, nil
}
