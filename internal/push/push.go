package push

import (
	"encoding/json"
	"log"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/store"
)

// Notifier sends Web Push notifications to subscribed accounts.
type Notifier struct {
	store           *store.Store
	vapidPublicKey  string
	vapidPrivateKey string
}

// New creates a push Notifier. Returns nil if VAPID keys are empty.
func New(st *store.Store, vapidPublicKey, vapidPrivateKey string) *Notifier {
	if vapidPublicKey == "" || vapidPrivateKey == "" {
		return nil
	}
	return &Notifier{
		store:           st,
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
	}
}

// VAPIDPublicKey returns the public VAPID key for the frontend.
func (n *Notifier) VAPIDPublicKey() string {
	return n.vapidPublicKey
}

// Subscribe stores a browser push subscription keyed by its endpoint.
func (n *Notifier) Subscribe(sub models.PushSubscription) error {
	if n == nil {
		return nil
	}
	return n.store.Put(store.Subscriptions, sub.Endpoint, sub)
}

// payload is the JSON structure sent inside the push notification.
type payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// SendNewMessageNotification pushes to all subscriptions of receiverUID.
func (n *Notifier) SendNewMessageNotification(receiverUID, senderName string) {
	if n == nil {
		return
	}

	subs, err := store.GetAllInto[models.PushSubscription](n.store, store.Subscriptions)
	if err != nil {
		log.Printf("push: failed to load subscriptions: %v", err)
		return
	}

	p := payload{
		Title: "پیام جدید",
		Body:  "پیام جدید از " + senderName,
		URL:   "/",
	}
	data, _ := json.Marshal(p)

	sent := 0
	for _, sub := range subs {
		if sub.UserID != receiverUID {
			continue
		}
		sent++
		go n.sendToSubscription(sub, data)
	}
	if sent == 0 {
		log.Printf("push: no active subscriptions for user %s", receiverUID)
	}
}

func (n *Notifier) sendToSubscription(sub models.PushSubscription, data []byte) {
	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.KeyP256dh,
			Auth:   sub.KeyAuth,
		},
	}

	resp, err := webpush.SendNotification(data, s, &webpush.Options{
		VAPIDPublicKey:  n.vapidPublicKey,
		VAPIDPrivateKey: n.vapidPrivateKey,
		Subscriber:      "mailto:push@ultimate.app",
		TTL:             86400,
	})
	if err != nil {
		log.Printf("push: failed to send to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// 410 Gone or 404 means the subscription is expired — clean it up
	if resp.StatusCode == 410 || resp.StatusCode == 404 {
		n.store.Delete(store.Subscriptions, sub.Endpoint)
		log.Printf("push: removed expired subscription %s (status %d)", sub.Endpoint, resp.StatusCode)
	}
}
