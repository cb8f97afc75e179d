// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/bureau-roles/lib/clock"
	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
	"github.com/bureau-foundation/bureau-roles/messaging"
)

// ErrAdminProtected is returned when an assignment would demote an
// admin other than the acting user. Matrix forbids lowering a peer at
// your own level; refusing locally avoids a round-trip that cannot
// succeed.
var ErrAdminProtected = errors.New("cannot demote another admin")

// Assigner changes a member's role.
type Assigner interface {
	SetRole(ctx context.Context, roomID ref.RoomID, userID ref.UserID, role schema.Role) error
}

// AssignerConfig configures a MatrixAssigner.
type AssignerConfig struct {
	// Session performs the power level read and write. Its user is the
	// acting admin.
	Session messaging.Session

	// Rate is the sustained number of assignments per second. Zero
	// means unlimited.
	Rate float64

	// Burst is the number of assignments allowed back to back. Values
	// below 1 are treated as 1.
	Burst int

	// Clock times rate-limit backoff. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

const (
	// maxRateLimitRetries bounds how often one assignment is retried
	// after M_LIMIT_EXCEEDED.
	maxRateLimitRetries = 3

	// defaultRetryAfter is the backoff when the server does not say.
	defaultRetryAfter = time.Second
)

// MatrixAssigner writes roles as m.room.power_levels updates, paced
// by a token bucket so a large save does not trip the homeserver's
// M_LIMIT_EXCEEDED.
type MatrixAssigner struct {
	session messaging.Session
	limiter *rate.Limiter
	clock   clock.Clock
	logger  *slog.Logger
}

var _ Assigner = (*MatrixAssigner)(nil)

// NewMatrixAssigner creates an assigner from config.
func NewMatrixAssigner(config AssignerConfig) (*MatrixAssigner, error) {
	if config.Session == nil {
		return nil, fmt.Errorf("roster: AssignerConfig.Session is required")
	}
	if config.Rate < 0 {
		return nil, fmt.Errorf("roster: AssignerConfig.Rate must not be negative")
	}
	limit := rate.Inf
	if config.Rate > 0 {
		limit = rate.Limit(config.Rate)
	}
	burst := max(config.Burst, 1)
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MatrixAssigner{
		session: config.Session,
		limiter: rate.NewLimiter(limit, burst),
		clock:   clk,
		logger:  logger,
	}, nil
}

// errUnchanged short-circuits the power levels write when the user
// already holds the requested level.
var errUnchanged = errors.New("unchanged")

// SetRole sets userID's power level to role's canonical level. A user
// already at that level is left alone. Demoting the user to the
// baseline role removes their explicit entry when users_default
// already gives them that level. A write refused with
// M_LIMIT_EXCEEDED is retried after the server's retry_after_ms.
func (a *MatrixAssigner) SetRole(ctx context.Context, roomID ref.RoomID, userID ref.UserID, role schema.Role) error {
	level, err := role.PowerLevel()
	if err != nil {
		return fmt.Errorf("roster: %w", err)
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("roster: waiting to assign %s: %w", userID, err)
	}

	var eventID ref.EventID
	for attempt := 0; ; attempt++ {
		eventID, err = a.writeLevel(ctx, roomID, userID, level)
		wait, limited := messaging.RetryAfter(err)
		if !limited || attempt == maxRateLimitRetries {
			break
		}
		if wait <= 0 {
			wait = defaultRetryAfter
		}
		a.logger.Debug("rate limited, retrying assignment",
			"room_id", roomID,
			"user_id", userID,
			"retry_after", wait,
			"attempt", attempt+1,
		)
		select {
		case <-a.clock.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("roster: waiting to retry %s: %w", userID, ctx.Err())
		}
	}
	switch {
	case errors.Is(err, errUnchanged):
		a.logger.Debug("role already held",
			"room_id", roomID,
			"user_id", userID,
			"role", role,
		)
		return nil
	case err != nil:
		return fmt.Errorf("roster: assigning %s to %s: %w", role, userID, err)
	}

	a.logger.Info("role assigned",
		"room_id", roomID,
		"user_id", userID,
		"role", role,
		"event_id", eventID,
	)
	return nil
}

// writeLevel performs one read-modify-write of the power levels.
func (a *MatrixAssigner) writeLevel(ctx context.Context, roomID ref.RoomID, userID ref.UserID, level int) (ref.EventID, error) {
	return schema.UpdatePowerLevels(ctx, a.session, roomID, func(powerLevels *schema.PowerLevels) error {
		current := powerLevels.UserLevel(userID)
		if current == level {
			return errUnchanged
		}
		if current >= schema.PowerLevelAdmin && level < current && userID != a.session.UserID() {
			return ErrAdminProtected
		}

		usersDefault := 0
		if powerLevels.UsersDefault != nil {
			usersDefault = *powerLevels.UsersDefault
		}
		if level == usersDefault {
			delete(powerLevels.Users, userID.String())
		} else {
			powerLevels.SetUserLevel(userID, level)
		}
		return nil
	})
}
