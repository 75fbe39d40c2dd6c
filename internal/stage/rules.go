// Package stage owns the conversation stage machine: the per-stage rule table,
// the statechart that fixes the forward chain, and the pure transition function.
package stage

import (
	"github.com/aretw0/stagegate/pkg/domain"
)

var defaultRules = []domain.StageRule{
	{
		Stage:         domain.StageDiscovery,
		CanShowPrices: false,
		MaxQuestions:  2,
		AllowedActions: []domain.Action{
			domain.ActionAskClarifying,
			domain.ActionSuggestDestinations,
			domain.ActionCollectTravelData,
		},
		ForbiddenActions: []domain.Action{
			domain.ActionExecuteSearch,
			domain.ActionShowPrices,
			domain.ActionInitiateBooking,
			domain.ActionShowBookingForm,
			domain.ActionCollectPaymentInfo,
		},
		NextStages: []domain.Stage{domain.StageNarrowing},
	},
	{
		Stage:         domain.StageNarrowing,
		CanShowPrices: false,
		MaxQuestions:  2,
		AllowedActions: []domain.Action{
			domain.ActionAskClarifying,
			domain.ActionSuggestDestinations,
			domain.ActionCollectTravelData,
		},
		ForbiddenActions: []domain.Action{
			domain.ActionExecuteSearch,
			domain.ActionShowPrices,
			domain.ActionInitiateBooking,
			domain.ActionCollectPaymentInfo,
		},
		NextStages: []domain.Stage{domain.StageReadyToSearch},
	},
	{
		Stage:         domain.StageReadyToSearch,
		CanShowPrices: true,
		MaxQuestions:  1,
		AllowedActions: []domain.Action{
			domain.ActionAskConsent,
			domain.ActionExecuteSearch,
			domain.ActionShowFlightResults,
			domain.ActionShowPrices,
			domain.ActionCollectTravelData,
		},
		ForbiddenActions: []domain.Action{
			domain.ActionInitiateBooking,
			domain.ActionCollectPaymentInfo,
			domain.ActionSkipConfirmation,
		},
		RequiresConsent: []domain.ConsentKind{domain.ConsentSearch},
		NextStages:      []domain.Stage{domain.StageReadyToBook},
	},
	{
		Stage:         domain.StageReadyToBook,
		CanShowPrices: true,
		MaxQuestions:  1,
		AllowedActions: []domain.Action{
			domain.ActionAskConsent,
			domain.ActionInitiateBooking,
			domain.ActionShowBookingForm,
			domain.ActionCollectPassengerInf,
			domain.ActionShowPrices,
			domain.ActionConfirmBooking,
		},
		ForbiddenActions: []domain.Action{
			domain.ActionAutoExecutePayment,
			domain.ActionSkipConfirmation,
			domain.ActionSkipReview,
			domain.ActionHideCancellation,
		},
		RequiresConsent: []domain.ConsentKind{domain.ConsentBooking},
		NextStages:      []domain.Stage{domain.StagePostBooking},
	},
	{
		Stage:         domain.StagePostBooking,
		CanShowPrices: true,
		MaxQuestions:  1,
		AllowedActions: []domain.Action{
			domain.ActionConfirmBooking,
			domain.ActionShowPrices,
		},
		ForbiddenActions: []domain.Action{
			domain.ActionPressureUpsell,
			domain.ActionHideCancellation,
		},
		NextStages: nil,
	},
}

// Rules returns a copy of the rule table in stage order.
func Rules() []domain.StageRule {
	out := make([]domain.StageRule, len(defaultRules))
	for i, r := range defaultRules {
		out[i] = cloneRule(r)
	}
	return out
}

// Rule returns the rule for s. Unknown stages get the DISCOVERY rule, which is
// the most restrictive one.
func Rule(s domain.Stage) domain.StageRule {
	for _, r := range defaultRules {
		if r.Stage == s {
			return cloneRule(r)
		}
	}
	return cloneRule(defaultRules[0])
}

// Forbidden returns the stage's forbidden actions plus the globally forbidden ones.
func Forbidden(s domain.Stage) []domain.Action {
	r := Rule(s)
	out := append([]domain.Action{}, r.ForbiddenActions...)
	for _, a := range domain.AlwaysForbidden {
		if !contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}

// IsActionAllowed reports whether the stage rule allows action.
func IsActionAllowed(s domain.Stage, action domain.Action) bool {
	return Rule(s).Allows(action)
}

// IsActionForbidden reports whether the stage rule, or the global list, forbids action.
func IsActionForbidden(s domain.Stage, action domain.Action) bool {
	return Rule(s).Forbids(action)
}

func cloneRule(r domain.StageRule) domain.StageRule {
	r.AllowedActions = append([]domain.Action(nil), r.AllowedActions...)
	r.ForbiddenActions = append([]domain.Action(nil), r.ForbiddenActions...)
	r.RequiresConsent = append([]domain.ConsentKind(nil), r.RequiresConsent...)
	r.NextStages = append([]domain.Stage(nil), r.NextStages...)
	return r
}

func contains(list []domain.Action, a domain.Action) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
