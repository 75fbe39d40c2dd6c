package ports

import (
	"context"

	"github.com/aretw0/stagegate/pkg/domain"
)

// ActionExecutor runs a mandated action (a search or a booking) against a
// provider. The core never calls it from inside the turn pipeline; the host
// calls it after reading the enforcement result and reports the returned
// status back through Complete.
type ActionExecutor interface {
	Execute(ctx context.Context, data domain.TravelData, action domain.ActionType) (domain.ExecutionStatus, error)
}
