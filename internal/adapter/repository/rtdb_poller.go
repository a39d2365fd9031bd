package repository

import (
	"context"
	"time"

	"firebase.google.com/go/v4/db"

	"fazaachat/pkg/logger"
)

const defaultPollInterval = time.Second

// watchRef polls ref and calls emit with the decoded value once at start and
// then whenever the server ETag changes. Read errors are logged and retried
// on the next tick. It returns when ctx is done or emit reports false.
func watchRef(ctx context.Context, ref *db.Ref, interval time.Duration, emit func(interface{}) bool) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	etag := ""
	for {
		var value interface{}
		if etag == "" {
			tag, err := ref.GetWithETag(ctx, &value)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("RTDB read of %s failed: %v", ref.Path, err)
			} else {
				etag = tag
				if !emit(value) {
					return
				}
			}
		} else {
			changed, tag, err := ref.GetIfChanged(ctx, etag, &value)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("RTDB poll of %s failed: %v", ref.Path, err)
			} else if changed {
				etag = tag
				if !emit(value) {
					return
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
