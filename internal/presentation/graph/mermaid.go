package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stagegate/pkg/domain"
)

// GraphOverlay contains dynamic session data to visualize on the chart.
type GraphOverlay struct {
	VisitedStages []domain.Stage
	CurrentStage  domain.Stage
}

// OverlayFor builds the overlay of a session.
func OverlayFor(sc *domain.SessionContext) *GraphOverlay {
	if sc == nil {
		return nil
	}
	return &GraphOverlay{VisitedStages: sc.Visited(), CurrentStage: sc.CurrentStage}
}

// GenerateMermaid produces a Mermaid flowchart of the stage chart.
// It applies semantic styling:
// - Entry stage: ((Circle))
// - Stage gated by consent: {{Hexagon}}
// - Terminal stage: ([Stadium])
// - Default: [Rectangle]
// Each stage lists the actions it allows. Overlay styles (Visited/Current)
// are applied if provided.
func GenerateMermaid(rules []domain.StageRule, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, rule := range rules {
		safeID := sanitizeMermaidID(string(rule.Stage))

		opener, closer := "[", "]"
		switch {
		case i == 0:
			opener, closer = "((", "))"
		case rule.Terminal():
			opener, closer = "([", "])"
		case len(rule.RequiresConsent) > 0:
			opener, closer = "{{", "}}"
		}

		label := string(rule.Stage)
		if len(rule.AllowedActions) > 0 {
			actions := make([]string, len(rule.AllowedActions))
			for j, a := range rule.AllowedActions {
				actions[j] = string(a)
			}
			label = fmt.Sprintf("%s <br/> %s", label, strings.Join(actions, ", "))
		}
		if rule.CanShowPrices {
			label += " <br/> 💲 prices"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for _, next := range rule.NextStages {
			arrow := "-->"
			if len(rule.RequiresConsent) > 0 {
				kinds := make([]string, len(rule.RequiresConsent))
				for j, k := range rule.RequiresConsent {
					kinds[j] = string(k)
				}
				arrow = fmt.Sprintf("-- \"consent: %s\" -->", strings.Join(kinds, ", "))
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(string(next))))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, s := range overlay.VisitedStages {
			safeID := sanitizeMermaidID(string(s))
			if !visitedSet[safeID] && safeID != "" && s != overlay.CurrentStage {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentStage != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(string(overlay.CurrentStage))))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ToLower(s)
}
