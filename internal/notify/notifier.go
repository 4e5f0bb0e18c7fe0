package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/internal/presence/domain"
)

// ErrPushDisabled is returned by the no-op notifier.
var ErrPushDisabled = errors.New("push notifications are not configured")

const iconPath = "/icon.png"

// Sender is the subset of *messaging.Client the notifier uses.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

// Notifier fans presence changes out to registered devices.
type Notifier interface {
	PresencePublished(ctx context.Context, rec domain.Record) error
	RegisterToken(ctx context.Context, token string) error
}

// FCMNotifier sends a topic message through Firebase Cloud Messaging.
type FCMNotifier struct {
	sender Sender
	topic  string
	logger *zap.Logger
}

func NewFCMNotifier(sender Sender, topic string, logger *zap.Logger) *FCMNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FCMNotifier{
		sender: sender,
		topic:  topic,
		logger: logger.Named("notify"),
	}
}

// PresencePublished announces rec to every device on the topic. The title is
// the member's name and avatar, the body their status.
func (n *FCMNotifier) PresencePublished(ctx context.Context, rec domain.Record) error {
	title := strings.TrimSpace(rec.DisplayName + " " + rec.AvatarEmoji())
	body := rec.StatusMessage
	if body == "" {
		body = domain.DefaultStatus
	}

	msg := &messaging.Message{
		Topic: n.topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"uid": rec.UID,
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: title,
				Body:  body,
				Icon:  iconPath,
			},
		},
	}

	id, err := n.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send presence notification: %w", err)
	}
	n.logger.Debug("presence notification sent", zap.String("uid", rec.UID), zap.String("message_id", id))
	return nil
}

// RegisterToken subscribes a device registration token to the topic.
func (n *FCMNotifier) RegisterToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("registration token is required")
	}

	resp, err := n.sender.SubscribeToTopic(ctx, []string{token}, n.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe token: %w", err)
	}
	if resp != nil && resp.FailureCount > 0 && len(resp.Errors) > 0 {
		return fmt.Errorf("failed to subscribe token: %s", resp.Errors[0].Reason)
	}
	return nil
}

// Noop is used when Firebase is not configured.
type Noop struct{}

func (Noop) PresencePublished(context.Context, domain.Record) error { return nil }

func (Noop) RegisterToken(context.Context, string) error { return ErrPushDisabled }
