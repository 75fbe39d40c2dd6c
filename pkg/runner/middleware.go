package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/stagegate"
	"github.com/aretw0/stagegate/pkg/domain"
)

// ActionInterceptor decides whether a mandated action may run. It returns
// true to proceed; a denial comes with a reason reported back to the engine
// as a failed execution.
type ActionInterceptor func(ctx context.Context, res *stagegate.TurnResult) (bool, string, error)

// MultiInterceptor chains interceptors; the first denial wins.
func MultiInterceptor(interceptors ...ActionInterceptor) ActionInterceptor {
	return func(ctx context.Context, res *stagegate.TurnResult) (bool, string, error) {
		for _, interceptor := range interceptors {
			allowed, reason, err := interceptor(ctx, res)
			if err != nil {
				return false, "", err
			}
			if !allowed {
				return false, reason, nil
			}
		}
		return true, "", nil
	}
}

// ConfirmationMiddleware asks the operator through handler before a mandated
// action runs. Anything other than y/yes denies it.
func ConfirmationMiddleware(handler IOHandler) ActionInterceptor {
	return func(ctx context.Context, res *stagegate.TurnResult) (bool, string, error) {
		prompt := fmt.Sprintf("Mandated action: %s (%s). Execute? [y/N]", res.Enforcement.ActionType, res.Enforcement.Reason)
		if err := handler.SystemOutput(ctx, prompt); err != nil {
			return false, "", err
		}
		input, err := handler.Input(ctx)
		if err != nil {
			return false, "", err
		}

		input = strings.TrimSpace(strings.ToLower(input))
		if input == "y" || input == "yes" {
			return true, "", nil
		}
		return false, "execution denied by operator", nil
	}
}

// AutoApproveMiddleware allows everything.
func AutoApproveMiddleware() ActionInterceptor {
	return func(ctx context.Context, res *stagegate.TurnResult) (bool, string, error) {
		return true, "", nil
	}
}

// DenyBookingMiddleware lets searches through and refuses bookings, for
// deployments where payment stays with a human.
func DenyBookingMiddleware() ActionInterceptor {
	return func(ctx context.Context, res *stagegate.TurnResult) (bool, string, error) {
		if res.Enforcement.ActionType == domain.ActionTypeInitiateBooking {
			return false, "bookings are handled by an agent", nil
		}
		return true, "", nil
	}
}
