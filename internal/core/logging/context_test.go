package logging

import (
	"context"
	"testing"
)

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "req-123"

	ctx = WithRequestID(ctx, requestID)
	got := GetRequestID(ctx)

	if got != requestID {
		t.Errorf("GetRequestID() = %q, want %q", got, requestID)
	}
}

func TestWithUserID(t *testing.T) {
	ctx := context.Background()
	userID := "user-456"

	ctx = WithUserID(ctx, userID)
	got := GetUserID(ctx)

	if got != userID {
		t.Errorf("GetUserID() = %q, want %q", got, userID)
	}
}

func TestGetRequestID_NotPresent(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty string", got)
	}
}

func TestGetUserID_NotPresent(t *testing.T) {
	if got := GetUserID(context.Background()); got != "" {
		t.Errorf("GetUserID() = %q, want empty string", got)
	}
}
