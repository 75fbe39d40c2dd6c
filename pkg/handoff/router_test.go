package handoff_test

import (
	"testing"

	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/handoff"
	"github.com/stretchr/testify/assert"
)

func TestRouter_LoopLimit(t *testing.T) {
	r := handoff.NewRouter()
	sc := domain.NewSessionContext("s1", at)

	targets := []domain.Team{domain.TeamFlights, domain.TeamHotels, domain.TeamPayments, domain.TeamFlights, domain.TeamHotels}
	var routes []handoff.Route
	for _, to := range targets {
		routes = append(routes, r.Route(sc, to))
	}

	assert.Equal(t, domain.TeamCustomerService, routes[0].From)
	for i := 0; i < handoff.DefaultMaxConsecutive; i++ {
		assert.False(t, routes[i].Forced, "handoff %d", i+1)
		assert.Equal(t, targets[i], routes[i].To)
	}
	assert.True(t, routes[3].Forced)
	assert.Equal(t, domain.TeamCustomerService, routes[3].To)
	assert.Equal(t, domain.TeamFlights, routes[3].Intended)
	assert.True(t, routes[4].Forced)
	assert.Equal(t, 5, sc.ConsecutiveHandoffs)
	assert.Equal(t, domain.TeamCustomerService, sc.ActiveAgent)
}

func TestRouter_SettleResetsCounter(t *testing.T) {
	r := handoff.NewRouter(handoff.WithMaxConsecutive(1), handoff.WithDefaultAgent(domain.TeamCrisis))
	sc := domain.NewSessionContext("s1", at)

	assert.False(t, r.Route(sc, domain.TeamFlights).Forced)
	assert.True(t, r.Route(sc, domain.TeamHotels).Forced)
	assert.Equal(t, domain.TeamCrisis, sc.ActiveAgent)

	r.Settle(sc)
	route := r.Route(sc, domain.TeamHotels)
	assert.False(t, route.Forced)
	assert.Equal(t, domain.TeamCrisis, route.From)
	assert.Equal(t, domain.TeamHotels, route.To)
}

func TestRouter_EmptyIntentGoesToDefault(t *testing.T) {
	r := handoff.NewRouter()
	route := r.Route(domain.NewSessionContext("s1", at), "")
	assert.Equal(t, domain.TeamCustomerService, route.To)
	assert.False(t, route.Forced)
}
