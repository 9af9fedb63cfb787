package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/feedbackflow/internal/export"
	"github.com/roach88/feedbackflow/internal/model"
)

// feedbackFlags are the submission fields as typed on the command line.
type feedbackFlags struct {
	Event     string `validate:"required"`
	Rating    int    `validate:"required,min=1,max=5"`
	Comment   string `validate:"required"`
	UserName  string `validate:"required"`
	UserID    string
	Anonymous bool
}

// feedbackMessages map failing fields to what the submitter is told.
var feedbackMessages = map[string]string{
	"Event":    "Please choose an event",
	"Rating":   "Please provide a rating",
	"Comment":  "Please provide a comment",
	"UserName": "Please provide your name",
}

// input validates the flags and converts them for the feedback store.
// Blank comments and names count as missing.
func (f *feedbackFlags) input() (model.FeedbackInput, error) {
	trimmed := *f
	trimmed.Comment = strings.TrimSpace(f.Comment)
	trimmed.UserName = strings.TrimSpace(f.UserName)
	if err := checkInput(&trimmed, feedbackMessages, ""); err != nil {
		return model.FeedbackInput{}, err
	}
	in := model.FeedbackInput{
		EventID:     f.Event,
		UserName:    f.UserName,
		Rating:      f.Rating,
		Comment:     f.Comment,
		IsAnonymous: f.Anonymous,
	}
	if f.UserID != "" {
		in.UserID = model.StringPtr(f.UserID)
	}
	return in, nil
}

// NewFeedbackCommand creates the feedback command group.
func NewFeedbackCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Submit, list and delete feedback",
	}
	cmd.AddCommand(newFeedbackListCommand(rootOpts))
	cmd.AddCommand(newFeedbackSubmitCommand(rootOpts))
	cmd.AddCommand(newFeedbackDeleteCommand(rootOpts))
	return cmd
}

func newFeedbackListCommand(rootOpts *RootOptions) *cobra.Command {
	var eventID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feedback",
		Long: `List feedback in submission order, optionally for one event.

Use "feedbackflow analytics summary" for date, rating and text filters.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				items := s.rt.Feedback.List(ctx)
				if eventID != "" {
					items = s.rt.Feedback.ListByEvent(ctx, eventID)
				}
				return s.out.Success(newFeedbackList(items, s.rt.Events.List(ctx)))
			})
		},
	}

	cmd.Flags().StringVar(&eventID, "event", "", "only feedback for this event id")

	return cmd
}

func newFeedbackSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &feedbackFlags{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Rate an event",
		Long: `Submit a 1-5 star rating with a comment for an event.

Example:
  feedbackflow feedback submit --event 1 --rating 5 --name "Ada" \
    --comment "Great talks"
  feedbackflow feedback submit --event 1 --rating 3 --name "Ada" \
    --comment "Too crowded" --anonymous`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := flags.input()
			if err != nil {
				return reportInput(rootOpts, cmd, err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				if _, ok := s.rt.Events.Get(ctx, in.EventID); !ok {
					return s.notFound("event", in.EventID)
				}
				f := s.rt.Feedback.Submit(ctx, in)
				return s.out.Success(newFeedbackList([]model.Feedback{f}, s.rt.Events.List(ctx))[0])
			})
		},
	}

	cmd.Flags().StringVar(&flags.Event, "event", "", "event id (required)")
	cmd.Flags().IntVar(&flags.Rating, "rating", 0, "stars, 1-5 (required)")
	cmd.Flags().StringVar(&flags.Comment, "comment", "", "comment (required)")
	cmd.Flags().StringVar(&flags.UserName, "name", "", "your name (required)")
	cmd.Flags().StringVar(&flags.UserID, "user", "", "user id of a signed-in submitter; empty for guests")
	cmd.Flags().BoolVar(&flags.Anonymous, "anonymous", false, "hide your name from other readers")

	return cmd
}

func newFeedbackDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete one feedback record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				id := args[0]
				if _, ok := s.rt.Feedback.Get(ctx, id); !ok {
					return s.notFound("feedback", id)
				}
				s.rt.Feedback.Delete(ctx, id)
				return s.out.Success(nil)
			})
		},
	}
}

// feedbackRow is a record joined with its event title.
type feedbackRow struct {
	model.Feedback
	EventTitle string `json:"eventTitle"`
}

func (r feedbackRow) RenderText(w io.Writer) {
	fmt.Fprintf(w, "%s on %s (%s)\n", r.ID, r.EventTitle, r.EventID)
	fmt.Fprintf(w, "  %s  %s  %s\n", stars(r.Rating), r.DisplayName(), r.Timestamp.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  %s\n", r.Comment)
}

type feedbackList []feedbackRow

func newFeedbackList(items []model.Feedback, events []model.Event) feedbackList {
	titles := make(map[string]string, len(events))
	for _, e := range events {
		titles[e.ID] = e.Title
	}
	out := make(feedbackList, len(items))
	for i, f := range items {
		title, ok := titles[f.EventID]
		if !ok {
			title = export.UnknownEvent
		}
		out[i] = feedbackRow{Feedback: f, EventTitle: title}
	}
	return out
}

func (l feedbackList) RenderText(w io.Writer) {
	if len(l) == 0 {
		fmt.Fprintln(w, "No feedback found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEVENT\tUSER\tRATING\tDATE\tCOMMENT")
	for _, r := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.EventTitle, r.DisplayName(), r.Rating, r.Timestamp.Format("2006-01-02"), oneLine(r.Comment, 40))
	}
	tw.Flush()
}

func stars(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// oneLine flattens s and cuts it to limit runes.
func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
