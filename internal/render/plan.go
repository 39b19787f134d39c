package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/ALT-F4-LLC/spacerestore/internal/planner"
)

const maxPhaseItems = 8

// RenderPlans renders dry-run plans as a tree: resource type, then phases,
// then the resources of each phase.
func RenderPlans(plans []*planner.Plan) string {
	if len(plans) == 0 {
		return EmptyState("Nothing to restore.", "The backup has no resources for the selected types.", false)
	}
	if !ColorsEnabled() {
		return renderPlainPlans(plans)
	}

	typeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	phaseStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	root := tree.New().Root("Restore plan")
	for _, p := range plans {
		node := tree.Root(typeStyle.Render(planHeading(p)))
		for _, phase := range p.Phases {
			pn := tree.Root(phaseStyle.Render(fmt.Sprintf("phase %d (%d)", phase.Number, len(phase.Resources))))
			labels, more := phaseLabels(phase)
			for _, l := range labels {
				pn.Child(l)
			}
			if more > 0 {
				pn.Child(dimStyle.Render(fmt.Sprintf("… %d more", more)))
			}
			node.Child(pn)
		}
		root.Child(node)
	}
	return root.String()
}

func planHeading(p *planner.Plan) string {
	return fmt.Sprintf("%s: %d to restore in %d phase(s)", p.Type, p.TotalResources, p.TotalPhases)
}

func phaseLabels(phase planner.Phase) ([]string, int) {
	n := min(len(phase.Resources), maxPhaseItems)
	labels := make([]string, 0, n)
	for _, r := range phase.Resources[:n] {
		labels = append(labels, fmt.Sprintf("%d %s", r.ID(), truncate(r.Label(), labelWidth())))
	}
	return labels, len(phase.Resources) - n
}

func renderPlainPlans(plans []*planner.Plan) string {
	var b strings.Builder
	for _, p := range plans {
		fmt.Fprintln(&b, planHeading(p))
		for _, phase := range p.Phases {
			fmt.Fprintf(&b, "  phase %d (%d)\n", phase.Number, len(phase.Resources))
			labels, more := phaseLabels(phase)
			for _, l := range labels {
				fmt.Fprintf(&b, "    %s\n", l)
			}
			if more > 0 {
				fmt.Fprintf(&b, "    ... %d more\n", more)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
