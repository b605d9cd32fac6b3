package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/credeval/internal/api"
	"github.com/fatih/color"
)

var (
	bold = color.New(color.Bold).SprintFunc()
	dim  = color.New(color.Faint).SprintFunc()

	statusColors = map[string]*color.Color{
		"Submitted":     color.New(color.FgBlue),
		"InReview":      color.New(color.FgCyan),
		"NeedsMoreInfo": color.New(color.FgYellow),
		"Completed":     color.New(color.FgGreen, color.Bold),
		"Rejected":      color.New(color.FgRed, color.Bold),
	}
)

func statusText(s string) string {
	if c, ok := statusColors[s]; ok {
		return c.Sprint(s)
	}
	return s
}

func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func printHistory(w io.Writer, h *api.HistoryResponse) {
	fmt.Fprintf(w, "current: %s\n", statusText(h.Current))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range h.Revisions {
		note := ""
		if r.Note != nil {
			note = *r.Note
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Seq, stamp(r.Timestamp), statusText(r.Status), r.Actor, note)
	}
	tw.Flush()
}

func printTimeline(w io.Writer, events []api.Event) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range events {
		what := e.Description
		if e.Kind == "revision" {
			what = statusText(e.Status)
			if e.Note != nil {
				what += " " + dim(*e.Note)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", stamp(e.Date), e.Kind, e.User, what)
	}
	tw.Flush()
}

func printRules(w io.Writer, r *api.Rules) {
	fmt.Fprintf(w, "%s: %s\n", bold(r.CountryCode), r.EducationSystem)
	gs := r.GradingScale
	order := "ascending"
	if gs.Descending {
		order = "descending"
	}
	fmt.Fprintf(w, "grading: %g-%g, passing %g (%s)\n", gs.Min, gs.Max, gs.Passing, order)
	for _, e := range r.DegreeEquivalence {
		fmt.Fprintf(w, "  %s => %s\n", e.Local, e.Equivalent)
	}
}
