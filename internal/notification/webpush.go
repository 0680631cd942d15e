package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"seatwatch-backend/internal/model"
	"seatwatch-backend/internal/store"
)

// ErrNoPushSubscription is returned when the email has no push endpoints.
var ErrNoPushSubscription = errors.New("no push subscription")

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// PushNotifier delivers to every browser endpoint registered for an email.
type PushNotifier struct {
	subs    store.PushStore
	webpush *webpush.Options
	sender  NotificationSender
}

// NewPushNotifier creates a web push notifier.
func NewPushNotifier(subs store.PushStore, webpushOptions *webpush.Options) *PushNotifier {
	return &PushNotifier{
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Notify implements Notifier. It succeeds when at least one endpoint accepted the message.
func (n *PushNotifier) Notify(ctx context.Context, email, title string) error {
	subscriptions, err := n.subs.PushSubscriptionsFor(ctx, email)
	if err != nil {
		return fmt.Errorf("fetching push subscriptions for %s: %w", email, err)
	}
	if len(subscriptions) == 0 {
		return fmt.Errorf("%s: %w", email, ErrNoPushSubscription)
	}

	payload := []byte(messageFor(title))
	delivered := 0
	for _, sub := range subscriptions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n.sendNotification(ctx, sub, payload) {
			delivered++
		}
	}
	if delivered == 0 {
		return fmt.Errorf("push to %s: no endpoint accepted the notification", email)
	}
	return nil
}

// sendNotification sends a single web push notification.
func (n *PushNotifier) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) bool {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := n.sender.Send(payload, wpSub, n.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return false
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := n.subs.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return false
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
