package firebase

import (
	"context"
	"fmt"
	"strings"
)

const DevTokenPrefix = "dev-"

// DevTokenVerifier accepts tokens of the form dev-<uid>. It stands in for
// Firebase Auth when the service runs on the memory backend in development.
type DevTokenVerifier struct{}

func (DevTokenVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	uid := strings.TrimPrefix(token, DevTokenPrefix)
	if uid == token || uid == "" {
		return "", fmt.Errorf("not a development token")
	}
	return uid, nil
}

// DevToken returns the development token for uid.
func DevToken(uid string) string {
	return DevTokenPrefix + uid
}
