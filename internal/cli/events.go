package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/feedbackflow/internal/analytics"
	"github.com/roach88/feedbackflow/internal/model"
)

// MsgRequiredEventFields is shown when a mandatory event field is missing.
const MsgRequiredEventFields = "Please fill in all required fields"

// eventFlags are the editable event fields as typed on the command line.
type eventFlags struct {
	Title       string `validate:"required"`
	Description string
	Status      string `validate:"oneof=active upcoming completed archived"`
	Start       string `validate:"required"`
	End         string `validate:"required"`
	Location    string `validate:"required"`
	Organizer   string
	Image       string `validate:"omitempty,url"`
}

func (f *eventFlags) register(cmd *cobra.Command, defaultStatus string) {
	cmd.Flags().StringVar(&f.Title, "title", "", "event title")
	cmd.Flags().StringVar(&f.Description, "description", "", "event description")
	cmd.Flags().StringVar(&f.Status, "status", defaultStatus, "status (active|upcoming|completed|archived)")
	cmd.Flags().StringVar(&f.Start, "start", "", "start date (RFC 3339 or yyyy-mm-dd)")
	cmd.Flags().StringVar(&f.End, "end", "", "end date (RFC 3339 or yyyy-mm-dd)")
	cmd.Flags().StringVar(&f.Location, "location", "", "venue")
	cmd.Flags().StringVar(&f.Organizer, "organizer", "", "organizer name")
	cmd.Flags().StringVar(&f.Image, "image", "", "image URL")
}

// input validates the flags and converts them for the event store.
func (f *eventFlags) input() (model.EventInput, error) {
	if err := checkInput(f, nil, MsgRequiredEventFields); err != nil {
		return model.EventInput{}, err
	}
	start, err := parseDate("start", f.Start)
	if err != nil {
		return model.EventInput{}, err
	}
	end, err := parseDate("end", f.End)
	if err != nil {
		return model.EventInput{}, err
	}
	return model.EventInput{
		Title:       f.Title,
		Description: f.Description,
		Status:      model.Status(f.Status),
		StartDate:   start,
		EndDate:     end,
		Location:    f.Location,
		Organizer:   f.Organizer,
		ImageURL:    f.Image,
	}, nil
}

// patch builds a partial update from the flags the user actually set.
func (f *eventFlags) patch(cmd *cobra.Command) (model.EventPatch, error) {
	var p model.EventPatch
	changed := cmd.Flags().Changed

	if changed("title") {
		if strings.TrimSpace(f.Title) == "" {
			return model.EventPatch{}, errors.New(MsgRequiredEventFields)
		}
		p.Title = &f.Title
	}
	if changed("location") {
		if strings.TrimSpace(f.Location) == "" {
			return model.EventPatch{}, errors.New(MsgRequiredEventFields)
		}
		p.Location = &f.Location
	}
	if changed("description") {
		p.Description = &f.Description
	}
	if changed("organizer") {
		p.Organizer = &f.Organizer
	}
	if changed("image") {
		if err := validate.Var(f.Image, "omitempty,url"); err != nil {
			return model.EventPatch{}, fmt.Errorf("invalid image: %q is not a URL", f.Image)
		}
		p.ImageURL = &f.Image
	}
	if changed("status") {
		st, err := model.ParseStatus(f.Status)
		if err != nil {
			return model.EventPatch{}, err
		}
		p.Status = &st
	}
	if changed("start") {
		t, err := parseDate("start", f.Start)
		if err != nil {
			return model.EventPatch{}, err
		}
		p.StartDate = &t
	}
	if changed("end") {
		t, err := parseDate("end", f.End)
		if err != nil {
			return model.EventPatch{}, err
		}
		p.EndDate = &t
	}
	return p, nil
}

// NewEventsCommand creates the events command group.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage the event catalog",
	}
	cmd.AddCommand(newEventsListCommand(rootOpts))
	cmd.AddCommand(newEventsGetCommand(rootOpts))
	cmd.AddCommand(newEventsCreateCommand(rootOpts))
	cmd.AddCommand(newEventsUpdateCommand(rootOpts))
	cmd.AddCommand(newEventsDeleteCommand(rootOpts))
	return cmd
}

func newEventsListCommand(rootOpts *RootOptions) *cobra.Command {
	var status, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		Long: `List events in catalog order.

Example:
  feedbackflow events list --status active --search summit`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := analytics.EventFilter{Search: search}
			if status != "" && status != "all" {
				st, err := model.ParseStatus(status)
				if err != nil {
					return WrapExitError(ExitFailure, "invalid --status", err)
				}
				filter.Status = st
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				return s.out.Success(eventList(filter.Apply(s.rt.Events.List(ctx))))
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only events with this status")
	cmd.Flags().StringVar(&search, "search", "", "match title, description or location")

	return cmd
}

func newEventsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one event",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				e, ok := s.rt.Events.Get(ctx, args[0])
				if !ok {
					return s.notFound("event", args[0])
				}
				return s.out.Success(eventDetail(e))
			})
		},
	}
}

func newEventsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &eventFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Long: `Create an event. Title, start, end and location are required.

Example:
  feedbackflow events create --title "Go Summit" --start 2024-05-01 \
    --end 2024-05-02 --location Berlin --status upcoming`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := flags.input()
			if err != nil {
				return reportInput(rootOpts, cmd, err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				e, err := s.rt.Events.Create(ctx, in)
				if err != nil {
					return s.fail("E_INVALID_INPUT", err)
				}
				return s.out.Success(eventDetail(e))
			})
		},
	}

	flags.register(cmd, string(model.StatusUpcoming))
	return cmd
}

func newEventsUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &eventFlags{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an event",
		Long: `Change fields of an event. Only the flags given are applied.

Example:
  feedbackflow events update 1 --status completed`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := flags.patch(cmd)
			if err != nil {
				return reportInput(rootOpts, cmd, err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				id := args[0]
				if _, ok := s.rt.Events.Get(ctx, id); !ok {
					return s.notFound("event", id)
				}
				if err := s.rt.Events.Update(ctx, id, patch); err != nil {
					return s.fail("E_INVALID_INPUT", err)
				}
				e, _ := s.rt.Events.Get(ctx, id)
				return s.out.Success(eventDetail(e))
			})
		},
	}

	flags.register(cmd, "")
	return cmd
}

func newEventsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete an event and all of its feedback",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				id := args[0]
				if _, ok := s.rt.Events.Get(ctx, id); !ok {
					return s.notFound("event", id)
				}
				s.rt.Events.Delete(ctx, id)
				return s.out.Success(nil)
			})
		},
	}
}

// reportInput renders an input error that was caught before storage was opened.
func reportInput(rootOpts *RootOptions, cmd *cobra.Command, err error) error {
	out := formatterFor(rootOpts, cmd)
	if outErr := out.Error("E_INVALID_INPUT", err.Error(), nil); outErr != nil {
		return outErr
	}
	exitErr := WrapExitError(ExitFailure, "E_INVALID_INPUT", err)
	exitErr.Reported = true
	return exitErr
}

// eventList renders as a table.
type eventList []model.Event

func (l eventList) RenderText(w io.Writer) {
	if len(l) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tSTART\tLOCATION\tFEEDBACK\tAVG")
	for _, e := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%.1f\n",
			e.ID, e.Title, e.Status, e.StartDate.Format(time.DateOnly), e.Location, e.FeedbackCount, e.AverageRating)
	}
	tw.Flush()
}

// eventDetail renders one event as labelled lines.
type eventDetail model.Event

func (e eventDetail) RenderText(w io.Writer) {
	fmt.Fprintf(w, "%s (%s)\n", e.Title, e.ID)
	fmt.Fprintf(w, "  Status:    %s\n", e.Status)
	fmt.Fprintf(w, "  When:      %s to %s\n", e.StartDate.Format(time.RFC3339), e.EndDate.Format(time.RFC3339))
	fmt.Fprintf(w, "  Location:  %s\n", e.Location)
	if e.Organizer != "" {
		fmt.Fprintf(w, "  Organizer: %s\n", e.Organizer)
	}
	if e.Description != "" {
		fmt.Fprintf(w, "  About:     %s\n", e.Description)
	}
	fmt.Fprintf(w, "  Feedback:  %d (avg %.1f)\n", e.FeedbackCount, e.AverageRating)
}
