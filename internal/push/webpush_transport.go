package push

import (
	"context"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/example/order-fulfillment/internal/models"
)

// WebPushTransport delivers payloads over the Web Push protocol with
// VAPID authentication.
type WebPushTransport struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	Client          *http.Client
	TTL             int
}

func NewWebPushTransport(publicKey, privateKey, subscriber string, timeout time.Duration) *WebPushTransport {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &WebPushTransport{
		VAPIDPublicKey:  publicKey,
		VAPIDPrivateKey: privateKey,
		Subscriber:      subscriber,
		Client:          &http.Client{Timeout: timeout},
		TTL:             60,
	}
}

func (t *WebPushTransport) Send(ctx context.Context, sub models.Subscription, payload []byte) error {
	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, s, &webpush.Options{
		HTTPClient:      t.Client,
		VAPIDPublicKey:  t.VAPIDPublicKey,
		VAPIDPrivateKey: t.VAPIDPrivateKey,
		Subscriber:      t.Subscriber,
		TTL:             t.TTL,
	})
	if err != nil {
		return &SendError{Kind: KindOther, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return &SendError{Kind: KindGone, Err: statusErr(resp.StatusCode)}
	case resp.StatusCode == http.StatusBadRequest:
		return &SendError{Kind: KindMalformed, Err: statusErr(resp.StatusCode)}
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return &SendError{Kind: KindTooLarge, Err: statusErr(resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &SendError{Kind: KindRateLimited, Err: statusErr(resp.StatusCode)}
	default:
		return &SendError{Kind: KindOther, Err: statusErr(resp.StatusCode)}
	}
}

func statusErr(code int) error {
	return fmt.Errorf("push service responded %d", code)
}
