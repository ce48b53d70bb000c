// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"log/slog"
	"time"
)

// DialWithBackoff opens a connection, retrying failed dials with exponential backoff.
// maxAttempts: maximum number of dial attempts (must be > 0)
// baseDelay: delay before the second attempt (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
//
// Only connection establishment is retried. Operations on the returned Store
// are never retried by this package.
func DialWithBackoff(ctx context.Context, dial Dialer, maxAttempts int, baseDelay time.Duration, logger *slog.Logger) (Store, error) {
	if maxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		store, err := dial(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Debug("store dial succeeded after retry", "attempt", attempt)
			}
			return store, nil
		}
		lastErr = err
		logger.Debug("store dial failed", "attempt", attempt, "maxAttempts", maxAttempts, "err", err)

		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return nil, lastErr
}
