package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// dateLayouts are accepted for --start/--end/--from/--to, tried in order.
// Values without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDate reads a date flag.
func parseDate(flag, value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("--%s: cannot parse %q as a date (want RFC 3339 or yyyy-mm-dd)", flag, value)
}

// checkInput validates in and turns the first failing field into a user
// message. messages maps struct field names to text; fallback covers the rest.
func checkInput(in any, messages map[string]string, fallback string) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	first := fieldErrs[0]
	if msg, ok := messages[first.Field()]; ok {
		return errors.New(msg)
	}
	if fallback != "" && first.Tag() == "required" {
		return errors.New(fallback)
	}
	return fmt.Errorf("invalid %s: failed %q check", strings.ToLower(first.Field()), first.Tag())
}
