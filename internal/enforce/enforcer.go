// Package enforce decides, once per turn, whether a side-effecting action is
// mandatory, whether consent must be requested first, or whether data is still
// missing. It also guards that a mandated action was actually carried out.
package enforce

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/stagegate/internal/extract"
	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/internal/logging"
	"github.com/aretw0/stagegate/internal/stage"
	"github.com/aretw0/stagegate/pkg/domain"
)

// Reasons attached to enforcement results.
const (
	ReasonSupportIntent = "support intent carries no mandatory action"
	ReasonTerminal      = "booking already confirmed"
	ReasonStageNotReady = "stage has not reached READY_TO_SEARCH"
	ReasonMissingData   = "required travel data is missing"
	ReasonNeedConsent   = "explicit consent required before executing"
	ReasonHighRisk      = "high risk turn deferred to manual review"
	ReasonExecute       = "data complete and consent granted"
)

// Enforcer is stateless and safe for concurrent use.
type Enforcer struct {
	lex       *lexicon.Lexicon
	extractor *extract.Extractor
	logger    *slog.Logger
}

// Option configures the Enforcer.
type Option func(*Enforcer)

// WithLogger sets the enforcer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enforcer) {
		e.logger = logger
	}
}

// New creates an Enforcer.
func New(lex *lexicon.Lexicon, extractor *extract.Extractor, opts ...Option) *Enforcer {
	e := &Enforcer{lex: lex, extractor: extractor, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide evaluates the enforcement table against the session as it stands.
// It does not modify sc.
func (e *Enforcer) Decide(sc *domain.SessionContext, intent string, risk domain.RiskLevel) domain.EnforcementResult {
	res := domain.EnforcementResult{
		ActionType:  domain.ActionTypeNone,
		StageBefore: sc.CurrentStage,
		StageAfter:  sc.CurrentStage,
	}
	logf := func(format string, args ...any) {
		res.Log = append(res.Log, fmt.Sprintf(format, args...))
	}
	logf("stage=%s intent=%s risk=%s", sc.CurrentStage, intent, risk)

	switch {
	case domain.SupportIntents[intent]:
		res.Reason = ReasonSupportIntent
		logf("support intent, nothing to enforce")
		return res
	case sc.CurrentStage == domain.StagePostBooking:
		res.Reason = ReasonTerminal
		logf("terminal stage, nothing to enforce")
		return res
	}

	res.MissingContext = MissingData(sc.Data)
	if len(res.MissingContext) > 0 || sc.CurrentStage.Before(domain.StageReadyToSearch) {
		res.ActionType = domain.ActionTypeCollectData
		res.Reason = ReasonMissingData
		if len(res.MissingContext) == 0 {
			res.Reason = ReasonStageNotReady
		}
		logf("collect data: missing=%v", res.MissingContext)
		return res
	}

	kind, action := domain.ConsentSearch, domain.ActionTypeExecuteSearch
	if sc.CurrentStage == domain.StageReadyToBook {
		kind, action = domain.ConsentBooking, domain.ActionTypeInitiateBooking
	}

	if !sc.Consents.Granted(kind) {
		res.ActionType = domain.ActionTypeAskConsent
		res.MustExecuteAction = true
		res.BlockFallback = true
		res.Consent = kind
		res.Reason = ReasonNeedConsent
		logf("ask consent: %s", kind)
		return res
	}
	logf("consent %s granted", kind)

	if risk == domain.RiskHigh {
		res.Reason = ReasonHighRisk
		logf("high risk, no auto-enforcement")
		e.logger.Info("Enforcement deferred", "stage", sc.CurrentStage, "action", action, "risk", risk)
		return res
	}

	res.ActionType = action
	res.MustExecuteAction = true
	res.BlockFallback = true
	res.Reason = ReasonExecute
	logf("mandate %s", action)
	return res
}

// MissingData lists the trusted data the mandatory actions depend on that the
// session still lacks: a place (origin or destination) and a departure date.
// Values waiting for confirmation are reported as "confirm:<slot>".
func MissingData(data domain.TravelData) []string {
	var missing []string

	if !data.Trusted(domain.SlotOrigin) && !data.Trusted(domain.SlotDestination) {
		switch {
		case needsConfirmation(data, domain.SlotDestination):
			missing = append(missing, "confirm:"+string(domain.SlotDestination))
		case needsConfirmation(data, domain.SlotOrigin):
			missing = append(missing, "confirm:"+string(domain.SlotOrigin))
		default:
			missing = append(missing, string(domain.SlotDestination))
		}
	}

	if !data.Trusted(domain.SlotDepartureDate) {
		if needsConfirmation(data, domain.SlotDepartureDate) {
			missing = append(missing, "confirm:"+string(domain.SlotDepartureDate))
		} else {
			missing = append(missing, string(domain.SlotDepartureDate))
		}
	}
	return missing
}

func needsConfirmation(data domain.TravelData, name domain.SlotName) bool {
	s, ok := data.Get(name)
	return ok && s.Band() == domain.BandNeedsConfirmation
}

// AssertMandatoryActionExecuted re-runs the decision and fails with a
// *domain.MandatoryActionViolation when execution was mandated but the status
// reports none, or when the executed action is forbidden in the current stage.
func (e *Enforcer) AssertMandatoryActionExecuted(sc *domain.SessionContext, intent string, risk domain.RiskLevel, status domain.ExecutionStatus) (domain.EnforcementResult, error) {
	res := e.Decide(sc, intent, risk)

	if status.ActionExecuted && status.ActionType.Executes() &&
		stage.IsActionForbidden(sc.CurrentStage, domain.Action(status.ActionType)) {
		return res, e.violation(sc, status.ActionType, fmt.Sprintf("%s is forbidden in %s", status.ActionType, sc.CurrentStage))
	}

	if !res.MustExecuteAction || !res.ActionType.Executes() {
		return res, nil
	}
	if !status.ActionExecuted {
		return res, e.violation(sc, res.ActionType, res.Reason)
	}
	if status.ActionType != "" && status.ActionType != res.ActionType {
		return res, e.violation(sc, res.ActionType, fmt.Sprintf("executed %s instead", status.ActionType))
	}
	return res, nil
}

func (e *Enforcer) violation(sc *domain.SessionContext, expected domain.ActionType, reason string) error {
	e.logger.Error("Mandatory action violation", "stage", sc.CurrentStage, "expected", expected, "reason", reason)
	return &domain.MandatoryActionViolation{
		SessionID:      sc.SessionID,
		Stage:          sc.CurrentStage,
		ExpectedAction: expected,
		Reason:         reason,
	}
}
