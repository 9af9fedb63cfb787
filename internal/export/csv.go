// Package export renders a feedback view as CSV.
//
// The format quotes every text column and leaves the rating bare, which
// encoding/csv cannot express, so rows are assembled by hand.
package export

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/feedbackflow/internal/model"
)

// ErrNothingToExport is returned for an empty view.
var ErrNothingToExport = errors.New("no feedback to export")

// Header is the first line of every export.
const Header = "Event,Date,User,Anonymous,Rating,Comment"

// UnknownEvent stands in for the title of a deleted or missing event.
const UnknownEvent = "Unknown Event"

const timestampLayout = "2006-01-02 15:04:05"

// CSV renders items in the given order. Lines are separated by "\n" with no
// trailing newline.
func CSV(items []model.Feedback, events []model.Event) (string, error) {
	if len(items) == 0 {
		return "", ErrNothingToExport
	}
	titles := make(map[string]string, len(events))
	for _, e := range events {
		titles[e.ID] = e.Title
	}

	var b strings.Builder
	b.WriteString(Header)
	for _, f := range items {
		title, ok := titles[f.EventID]
		if !ok {
			title = UnknownEvent
		}
		anonymous := "No"
		if f.IsAnonymous {
			anonymous = "Yes"
		}

		b.WriteByte('\n')
		b.WriteString(quote(title))
		b.WriteByte(',')
		b.WriteString(quote(f.Timestamp.UTC().Format(timestampLayout)))
		b.WriteByte(',')
		b.WriteString(quote(f.UserName))
		b.WriteByte(',')
		b.WriteString(quote(anonymous))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(f.Rating))
		b.WriteByte(',')
		b.WriteString(quote(f.Comment))
	}
	return b.String(), nil
}

// Write renders items to w.
func Write(w io.Writer, items []model.Feedback, events []model.Event) error {
	out, err := CSV(items, events)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// FileName is the suggested download name for an export made at now.
func FileName(now time.Time) string {
	return "feedback_export_" + now.UTC().Format("2006-01-02") + ".csv"
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
