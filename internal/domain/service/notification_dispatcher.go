package service

import (
	"context"
	"sync"
	"time"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/infrastructure/metrics"
	"fazaachat/pkg/logger"
)

// Notifier delivers one push notification.
type Notifier interface {
	Send(ctx context.Context, notification entity.Notification) error
}

// NotificationDispatcher sends pushes off the caller's path. Outcomes are
// logged and counted, never returned and never retried.
type NotificationDispatcher struct {
	notifier  Notifier
	directory *DirectoryLookup
	timeout   time.Duration
	metrics   *metrics.Metrics
	wg        sync.WaitGroup
}

func NewNotificationDispatcher(notifier Notifier, directory *DirectoryLookup, timeout time.Duration, m *metrics.Metrics) *NotificationDispatcher {
	return &NotificationDispatcher{
		notifier:  notifier,
		directory: directory,
		timeout:   timeout,
		metrics:   m,
	}
}

// Dispatch sends to token in the background.
func (d *NotificationDispatcher) Dispatch(token, title, body string) {
	if token == "" {
		d.metrics.Notification("skipped_no_token")
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := d.context()
		defer cancel()
		d.send(ctx, entity.Notification{Token: token, Title: title, Body: body})
	}()
}

// NotifyUser resolves userID through the directory and dispatches to its
// token, all in the background. Users without a record or token are skipped.
func (d *NotificationDispatcher) NotifyUser(userID, title, body string) {
	if d == nil || d.directory == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := d.context()
		defer cancel()

		entry := d.directory.Fetch(ctx, userID)
		if entry == nil {
			d.metrics.Notification("skipped_no_entry")
			return
		}
		if entry.FCMToken == "" {
			logger.Debug("NotificationDispatcher: user %s has no notification token", userID)
			d.metrics.Notification("skipped_no_token")
			return
		}
		d.send(ctx, entity.Notification{Token: entry.FCMToken, Title: title, Body: body})
	}()
}

// Wait blocks until every in-flight dispatch has finished.
func (d *NotificationDispatcher) Wait() {
	d.wg.Wait()
}

func (d *NotificationDispatcher) send(ctx context.Context, n entity.Notification) {
	if err := d.notifier.Send(ctx, n); err != nil {
		logger.Warn("NotificationDispatcher: push failed: %v", err)
		d.metrics.Notification("failed")
		return
	}
	d.metrics.Notification("sent")
}

func (d *NotificationDispatcher) context() (context.Context, context.CancelFunc) {
	if d.timeout > 0 {
		return context.WithTimeout(context.Background(), d.timeout)
	}
	return context.WithCancel(context.Background())
}
