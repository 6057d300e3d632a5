package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-sketch/pkg/inference"
	"github.com/dd0wney/cluso-sketch/pkg/results"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

func render(r *results.Report, res *inference.Result) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Sketch " + r.Sketch))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  run %s", r.ID)))
	b.WriteString("\n\n")

	if r.InitialCandidates != "" {
		fmt.Fprintf(&b, "%s %s\n", headerStyle.Render("initial candidates:"), r.InitialCandidates)
	}
	for _, st := range r.Steps {
		if st.Skipped {
			fmt.Fprintf(&b, "  %-40s %s\n", st.Property, dimStyle.Render("skipped"))
			continue
		}
		fmt.Fprintf(&b, "  %-40s %s %s\n", st.Property, st.Candidates, dimStyle.Render(st.Duration.Round(time.Microsecond).String()))
	}
	if r.FinalCandidates != "" {
		style := successStyle
		if r.FinalCandidates == "0" {
			style = errorStyle
		}
		fmt.Fprintf(&b, "%s %s\n", headerStyle.Render("remaining candidates:"), style.Render(r.FinalCandidates))
	}

	for i, w := range r.Witnesses {
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(fmt.Sprintf("witness %d\n%s", i+1, strings.TrimRight(w, "\n"))))
		b.WriteString("\n")
	}

	if r.Summary != nil {
		b.WriteString("\n")
		label := fmt.Sprintf("update functions over %d candidates", r.Summary.Sampled)
		if !r.Summary.Exhausted {
			label += " (sample)"
		}
		b.WriteString(headerStyle.Render(label))
		b.WriteString("\n")
		for _, v := range r.Summary.Fixed {
			fmt.Fprintf(&b, "  %s = %s\n", v, r.Summary.Variants[v][0].Update)
		}
		for _, v := range r.Summary.Free {
			fmt.Fprintf(&b, "  %s: %d variants\n", v, len(r.Summary.Variants[v]))
			for _, variant := range r.Summary.Variants[v] {
				fmt.Fprintf(&b, "      %6d  %s\n", variant.Count, variant.Update)
			}
		}
	}

	if len(r.Classes) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("attractor classes"))
		b.WriteString("\n")
		for _, c := range r.Classes {
			fmt.Fprintf(&b, "  %-28s %s\n", c.Class, c.Candidates)
		}
	}

	if r.Goal != "" {
		b.WriteString("\n")
		style := successStyle
		if res == nil || res.Goal != inference.GoalIncluded {
			style = errorStyle
		}
		fmt.Fprintf(&b, "%s %s\n", headerStyle.Render("goal network:"), style.Render(r.Goal))
		if r.GoalNote != "" {
			b.WriteString(dimStyle.Render("  " + r.GoalNote))
			b.WriteString("\n")
		}
	}

	if len(r.Steps) == 0 && r.Error == "" {
		b.WriteString(dimStyle.Render("no constraints applied"))
		b.WriteString("\n")
	}
	return b.String()
}
