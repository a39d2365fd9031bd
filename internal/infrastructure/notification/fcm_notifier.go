package notification

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"fazaachat/internal/domain/entity"
)

// MessagingClient is the subset of *messaging.Client used here.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier sends through the Firebase Admin messaging API.
type FCMNotifier struct {
	client      MessagingClient
	clickAction string
}

func NewFCMNotifier(client MessagingClient, clickAction string) *FCMNotifier {
	return &FCMNotifier{client: client, clickAction: clickAction}
}

func (f *FCMNotifier) Send(ctx context.Context, n entity.Notification) error {
	_, err := f.client.Send(ctx, f.message(n))
	if err != nil {
		return fmt.Errorf("fcm send failed: %w", err)
	}
	return nil
}

func (f *FCMNotifier) message(n entity.Notification) *messaging.Message {
	return &messaging.Message{
		Token: n.Token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: map[string]string{"click_action": f.clickAction},
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Sound:       "default",
				ClickAction: f.clickAction,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}
