// Package idempotency replays stored responses for submit-class endpoints
// when the caller repeats a request with the same Idempotency-Key.
package idempotency

import "context"

type Caller struct {
	UserID         string
	IdempotencyKey string
}

type Store interface {
	GetIdempotencyRecord(ctx context.Context, userID, idempotencyKey, endpoint string) (int, map[string]any, bool, error)
	SaveIdempotencyRecord(ctx context.Context, userID, idempotencyKey, endpoint string, responseStatus int, responseBody map[string]any) error
}

// Replay returns the stored response for the caller's key, if any. Without a
// key it is a no-op.
func Replay(ctx context.Context, st Store, caller Caller, endpoint string) (int, map[string]any, bool, error) {
	if caller.IdempotencyKey == "" {
		return 0, nil, false, nil
	}
	status, body, found, err := st.GetIdempotencyRecord(ctx, caller.UserID, caller.IdempotencyKey, endpoint)
	if err != nil {
		return 0, nil, false, err
	}
	if !found {
		return 0, nil, false, nil
	}
	return status, body, true, nil
}

func Save(ctx context.Context, st Store, caller Caller, endpoint string, status int, response map[string]any) error {
	if caller.IdempotencyKey == "" {
		return nil
	}
	return st.SaveIdempotencyRecord(ctx, caller.UserID, caller.IdempotencyKey, endpoint, status, response)
}
