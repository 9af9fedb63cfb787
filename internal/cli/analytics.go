package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/feedbackflow/internal/analytics"
	"github.com/roach88/feedbackflow/internal/model"
)

// filterFlags narrow the feedback a command works on.
type filterFlags struct {
	Event  string
	Rating int `validate:"min=0,max=5"`
	Range  string
	From   string
	To     string
	Search string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Event, "event", "", "only feedback for this event id")
	cmd.Flags().IntVar(&f.Rating, "rating", 0, "only this star value (1-5)")
	cmd.Flags().StringVar(&f.Range, "range", "", "date window (all|last7days|last30days|custom)")
	cmd.Flags().StringVar(&f.From, "from", "", "first day of a custom window (yyyy-mm-dd)")
	cmd.Flags().StringVar(&f.To, "to", "", "last day of a custom window (yyyy-mm-dd)")
	cmd.Flags().StringVar(&f.Search, "search", "", "match user name, comment or event title")
}

// filter converts the flags. Giving --from or --to without --range selects
// the custom window.
func (f *filterFlags) filter() (analytics.FeedbackFilter, error) {
	if err := checkInput(f, map[string]string{"Rating": "--rating must be between 1 and 5"}, ""); err != nil {
		return analytics.FeedbackFilter{}, err
	}
	rng, err := analytics.ParseRange(f.Range)
	if err != nil {
		return analytics.FeedbackFilter{}, err
	}
	if f.Range == "" && (f.From != "" || f.To != "") {
		rng = analytics.RangeCustom
	}
	out := analytics.FeedbackFilter{
		EventID: f.Event,
		Rating:  f.Rating,
		Range:   rng,
		Search:  f.Search,
	}
	if f.From != "" {
		if out.Start, err = parseDate("from", f.From); err != nil {
			return analytics.FeedbackFilter{}, err
		}
	}
	if f.To != "" {
		if out.End, err = parseDate("to", f.To); err != nil {
			return analytics.FeedbackFilter{}, err
		}
	}
	return out, nil
}

// NewAnalyticsCommand creates the analytics command group.
func NewAnalyticsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Summaries over events and feedback",
	}
	cmd.AddCommand(newAnalyticsSummaryCommand(rootOpts))
	cmd.AddCommand(newAnalyticsDashboardCommand(rootOpts))
	return cmd
}

func newAnalyticsSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &filterFlags{}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Rating statistics for a filtered view of feedback",
		Long: `Compute rating statistics over the feedback that passes every filter.

Examples:
  feedbackflow analytics summary
  feedbackflow analytics summary --range last7days --rating 5
  feedbackflow analytics summary --from 2023-11-01 --to 2023-11-15 --search venue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return reportInput(rootOpts, cmd, err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				events := s.rt.Events.List(ctx)
				view := filter.Apply(s.rt.Feedback.List(ctx), events, s.now())
				return s.out.Success(summaryView{analytics.Summarize(events, view)})
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newAnalyticsDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	var latest int

	cmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "Catalog and feedback overview",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				events := s.rt.Events.List(ctx)
				d := analytics.BuildDashboard(events, s.rt.Feedback.List(ctx), latest)
				return s.out.Success(dashboardView{Dashboard: d, titles: titlesOf(events)})
			})
		},
	}

	cmd.Flags().IntVar(&latest, "latest", analytics.DefaultLatest, "how many recent submissions to list")

	return cmd
}

func titlesOf(events []model.Event) map[string]string {
	titles := make(map[string]string, len(events))
	for _, e := range events {
		titles[e.ID] = e.Title
	}
	return titles
}

type summaryView struct {
	analytics.Summary
}

func (v summaryView) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Feedback:        %d across %d of %d events\n", v.TotalFeedback, v.EventsWithFeedback, v.TotalEvents)
	fmt.Fprintf(w, "Average rating:  %.1f\n", v.AverageRating)
	if v.MostCommonRating > 0 {
		fmt.Fprintf(w, "Most common:     %d\n", v.MostCommonRating)
	}
	writeDistribution(w, v.Distribution, v.TotalFeedback)

	if len(v.EventRatings) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EVENT\tFEEDBACK\tAVG")
		for _, r := range v.EventRatings {
			fmt.Fprintf(tw, "%s\t%d\t%.1f\n", r.Title, r.Count, r.AverageRating)
		}
		tw.Flush()
	}

	if len(v.Timeline) > 0 {
		fmt.Fprintln(w)
		for _, d := range v.Timeline {
			fmt.Fprintf(w, "%s  %d\n", d.Date, d.Count)
		}
	}
}

type dashboardView struct {
	analytics.Dashboard
	titles map[string]string
}

func (v dashboardView) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Events:          %d", v.TotalEvents)
	parts := make([]string, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		parts = append(parts, fmt.Sprintf("%s %d", s, v.ByStatus[s]))
	}
	fmt.Fprintf(w, " (%s)\n", strings.Join(parts, ", "))
	fmt.Fprintf(w, "Feedback:        %d\n", v.TotalFeedback)
	fmt.Fprintf(w, "Average rating:  %.1f\n", v.AverageRating)
	writeDistribution(w, v.Distribution, v.TotalFeedback)

	if len(v.Latest) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Latest feedback:")
	for _, f := range v.Latest {
		title, ok := v.titles[f.EventID]
		if !ok {
			title = f.EventID
		}
		fmt.Fprintf(w, "  %s  %s on %s, %s\n", stars(f.Rating), f.DisplayName(), title, f.Timestamp.Format(time.DateOnly))
	}
}

func writeDistribution(w io.Writer, dist []analytics.RatingCount, total int) {
	for i := len(dist) - 1; i >= 0; i-- {
		c := dist[i]
		pct := 0.0
		if total > 0 {
			pct = float64(c.Count) * 100 / float64(total)
		}
		fmt.Fprintf(w, "  %d★ %-20s %3d (%.0f%%)\n", c.Rating, strings.Repeat("█", int(pct/5)), c.Count, pct)
	}
}
