package handoff

import (
	"log/slog"

	"github.com/aretw0/stagegate/internal/logging"
	"github.com/aretw0/stagegate/pkg/domain"
)

// DefaultMaxConsecutive is the number of back-to-back handoffs allowed before
// routing is forced to the default agent.
const DefaultMaxConsecutive = 3

// Route is the routing decision for one handoff.
type Route struct {
	From     domain.Team `json:"from"`
	To       domain.Team `json:"to"`
	Intended domain.Team `json:"intended"`
	Forced   bool        `json:"forced"`
	Count    int         `json:"count"`
}

// Router caps consecutive handoffs per session.
type Router struct {
	maxConsecutive int
	defaultAgent   domain.Team
	logger         *slog.Logger
}

// RouterOption configures the Router.
type RouterOption func(*Router)

// WithMaxConsecutive sets the loop limit.
func WithMaxConsecutive(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.maxConsecutive = n
		}
	}
}

// WithDefaultAgent sets the agent routing falls back to.
func WithDefaultAgent(team domain.Team) RouterOption {
	return func(r *Router) {
		if team != "" {
			r.defaultAgent = team
		}
	}
}

// WithLogger sets the router logger.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a Router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		maxConsecutive: DefaultMaxConsecutive,
		defaultAgent:   domain.TeamCustomerService,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultAgent returns the fallback agent.
func (r *Router) DefaultAgent() domain.Team {
	return r.defaultAgent
}

// Route counts a handoff on sc and picks its target. Once the count exceeds
// the limit the default agent is chosen whatever was intended. sc is
// modified in place.
func (r *Router) Route(sc *domain.SessionContext, intended domain.Team) Route {
	from := sc.ActiveAgent
	if from == "" {
		from = r.defaultAgent
	}

	sc.ConsecutiveHandoffs++
	route := Route{From: from, To: intended, Intended: intended, Count: sc.ConsecutiveHandoffs}
	if intended == "" {
		route.To = r.defaultAgent
	}
	if sc.ConsecutiveHandoffs > r.maxConsecutive {
		route.To = r.defaultAgent
		route.Forced = true
		r.logger.Warn("Handoff loop limit reached", "count", route.Count, "intended", intended, "to", route.To)
	}
	sc.ActiveAgent = route.To
	return route
}

// Settle resets the loop counter after a user turn that needed no handoff.
func (r *Router) Settle(sc *domain.SessionContext) {
	sc.ConsecutiveHandoffs = 0
}
