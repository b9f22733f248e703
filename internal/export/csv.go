// Package export renders form responses as a downloadable CSV file.
//
// The dialect is minimal: every cell is wrapped in double
// quotes, cells are joined with commas and rows with newlines. Quotes, commas
// and newlines inside values are written as is, so values containing them
// produce a file other tools will split differently.
package export

import (
	"errors"
	"strings"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
)

// TimestampLayout matches the en-US date and time display of a browser
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// ErrNoResponses is returned when a form has nothing to export
var ErrNoResponses = errors.New("no responses to export")

// TimeFormatter renders submission times for humans
type TimeFormatter struct {
	Location *time.Location
	Layout   string
}

// NewTimeFormatter builds a formatter for the named IANA zone ("Local" and "" use the host zone)
func NewTimeFormatter(zone string) (TimeFormatter, error) {
	loc := time.Local
	if zone != "" && zone != "Local" {
		var err error
		if loc, err = time.LoadLocation(zone); err != nil {
			return TimeFormatter{}, err
		}
	}

	return TimeFormatter{Location: loc, Layout: TimestampLayout}, nil
}

// Format renders t in the formatter's zone and layout
func (f TimeFormatter) Format(t time.Time) string {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}

	layout := f.Layout
	if layout == "" {
		layout = TimestampLayout
	}

	return t.In(loc).Format(layout)
}

// Header returns the header row of a form export
func Header(form *entity.Form) []string {
	header := make([]string, 0, len(form.Questions)+2)
	header = append(header, "Response ID", "Submitted At")

	for _, q := range form.Questions {
		header = append(header, q.Text)
	}

	return header
}

// Row returns the cells of one response, "" for questions it did not answer
func Row(form *entity.Form, r entity.Response, tf TimeFormatter) []string {
	row := make([]string, 0, len(form.Questions)+2)
	row = append(row, r.ID, tf.Format(r.SubmittedAt))

	for _, q := range form.Questions {
		value, _ := r.Answer(q.ID)
		row = append(row, value)
	}

	return row
}

// CSV renders every response of form in stored order.
// It refuses to produce output for a form without responses.
func CSV(form *entity.Form, tf TimeFormatter) (string, error) {
	if len(form.Responses) == 0 {
		return "", ErrNoResponses
	}

	var b strings.Builder

	writeRow(&b, Header(form))
	for _, r := range form.Responses {
		b.WriteByte('\n')
		writeRow(&b, Row(form, r, tf))
	}

	return b.String(), nil
}

// FileName returns the download name of a form export
func FileName(form *entity.Form) string {
	return form.Title + "-responses.csv"
}

func writeRow(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(cell)
		b.WriteByte('"')
	}
}
