package graph_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stagegate/internal/presentation/graph"
	"github.com/aretw0/stagegate/internal/stage"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(stage.Rules(), nil)

	tests := []struct {
		name     string
		contains []string
	}{
		{
			name:     "Entry Stage Shape",
			contains: []string{`discovery(("DISCOVERY`},
		},
		{
			name:     "Consent Gated Shape",
			contains: []string{`ready_to_search{{"READY_TO_SEARCH`, `ready_to_book{{"READY_TO_BOOK`},
		},
		{
			name:     "Terminal Shape",
			contains: []string{`post_booking(["POST_BOOKING`},
		},
		{
			name: "Forward Edges",
			contains: []string{
				"discovery --> narrowing",
				"narrowing --> ready_to_search",
				`ready_to_search -- "consent: search" --> ready_to_book`,
			},
		},
		{
			name:     "Pricing Marker",
			contains: []string{"💲 prices"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.NotContains(t, out, "classDef", "no overlay without a session")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	sc := domain.NewSessionContext("s1", now)
	sc.Advance(domain.StageNarrowing, "slots", now)
	sc.Advance(domain.StageReadyToSearch, "slots", now)

	out := graph.GenerateMermaid(stage.Rules(), graph.OverlayFor(sc))

	assert.Contains(t, out, "class discovery visited;")
	assert.Contains(t, out, "class narrowing visited;")
	assert.Contains(t, out, "class ready_to_search current;")
	assert.NotContains(t, out, "class ready_to_search visited;")
	assert.NotContains(t, out, "class ready_to_book")

	assert.Nil(t, graph.OverlayFor(nil))
}
