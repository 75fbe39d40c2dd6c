/*
Package stagegate is a deterministic stage and action-enforcement engine for
travel-booking conversations.

It tracks, per session, which of five disclosure stages the conversation has
reached (DISCOVERY, NARROWING, READY_TO_SEARCH, READY_TO_BOOK, POST_BOOKING),
which travel data has been collected and how confidently, and which consents
the user has given. From that state it decides once per turn whether a search
or booking is mandatory, whether consent must be requested first, or whether
data is still missing, and it validates drafted replies so that no agent
re-asks what it already knows.

# Concept

The Engine is the only mutator of session state. The host (a chat loop, an
HTTP handler, an MCP tool) hands it each user message and receives a decision:

	Turn -> classify -> extract -> transition stage -> enforce -> respond

Side effects stay outside. When a turn mandates a search, the host runs it and
reports the outcome through Complete; a mandated action that was not executed
surfaces as a *domain.MandatoryActionViolation instead of a silent fallback.

# Usage

	eng, err := stagegate.New()
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Turn(ctx, stagegate.TurnRequest{
		SessionID: "session-123",
		Message:   "I want to fly from Lisbon to Paris on 10 November",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Session.CurrentStage, res.Enforcement.ActionType, res.Response.Text)

# Persistence

Sessions live in a ports.SessionStore (memory by default; file and Redis
adapters ship in pkg/adapters). Turns for one session are serialized by a
pkg/session.Manager, optionally across replicas with a distributed locker.
*/
package stagegate
