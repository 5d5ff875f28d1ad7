package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/davrius/taskwell/internal/db"
	"github.com/davrius/taskwell/internal/models"
)

const (
	pushMaxAttempts = 3
	pushBackoffBase = time.Second
	pushBackoffCap  = 5 * time.Second
	pushTTLSeconds  = 60
)

// PushService delivers reminder payloads over Web Push. Delivery is
// best-effort: transient failures retry with backoff, endpoints reported
// gone are dropped from the subscription store, and everything else is
// logged and abandoned.
type PushService struct {
	subscriptions   *db.SubscriptionRepository
	subscriber      string
	vapidPublicKey  string
	vapidPrivateKey string
}

func NewPushService(subscriptions *db.SubscriptionRepository, subscriber string, vapidPublicKey string, vapidPrivateKey string) *PushService {
	return &PushService{
		subscriptions:   subscriptions,
		subscriber:      subscriber,
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
	}
}

func (service *PushService) VAPIDPublicKey() string {
	return service.vapidPublicKey
}

func (service *PushService) Send(ctx context.Context, subscription models.PushSubscription, payload []byte) error {
	target := &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: subscription.P256dhKey,
			Auth:   subscription.AuthKey,
		},
	}
	options := &webpush.Options{
		Subscriber:      service.subscriber,
		VAPIDPublicKey:  service.vapidPublicKey,
		VAPIDPrivateKey: service.vapidPrivateKey,
		TTL:             pushTTLSeconds,
	}

	var lastErr error
	for attempt := 0; attempt < pushMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pushBackoff(attempt)):
			}
		}

		response, err := webpush.SendNotificationWithContext(ctx, payload, target, options)
		if err != nil {
			lastErr = err
			continue
		}
		statusCode := response.StatusCode
		response.Body.Close()

		switch {
		case statusCode < http.StatusBadRequest:
			return nil
		case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
			// Endpoint is permanently dead; retrying is pointless.
			if err := service.subscriptions.DeleteByID(subscription.ID); err != nil {
				log.Printf("push: drop dead subscription %d failed: %v", subscription.ID, err)
			}
			return nil
		default:
			lastErr = fmt.Errorf("push status %d", statusCode)
		}
	}
	return fmt.Errorf("push to %s after %d attempts: %w", subscription.Endpoint, pushMaxAttempts, lastErr)
}

// pushBackoff is exponential from the base, capped.
func pushBackoff(attempt int) time.Duration {
	backoff := pushBackoffBase << (attempt - 1)
	if backoff > pushBackoffCap {
		return pushBackoffCap
	}
	return backoff
}

// GenerateVAPIDKeys mints a fresh keypair for deployments that have not
// configured one.
func GenerateVAPIDKeys() (privateKey string, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}
