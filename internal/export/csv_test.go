package export

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var utc = TimeFormatter{Location: time.UTC, Layout: TimestampLayout}

func colorForm(values ...string) *entity.Form {
	form := &entity.Form{
		ID:    "f1",
		Title: "T",
		Questions: []entity.Question{
			{ID: "q1", Text: "Color?", Type: entity.QuestionMultipleChoice, Options: []string{"Red", "Blue"}},
		},
	}

	start := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	for i, v := range values {
		form.Responses = append(form.Responses, entity.Response{
			ID:          "r" + string(rune('1'+i)),
			FormID:      "f1",
			Answers:     []entity.Answer{{QuestionID: "q1", Value: v}},
			SubmittedAt: start.Add(time.Duration(i) * time.Minute),
		})
	}

	return form
}

func TestCSV_ColorScenario(t *testing.T) {
	out, err := CSV(colorForm("Red", "Red", "Blue"), utc)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"Response ID","Submitted At","Color?"`, lines[0])
	assert.Equal(t, `"r1","3/5/2024, 2:07:09 PM","Red"`, lines[1])
	assert.Equal(t, `"r2","3/5/2024, 2:08:09 PM","Red"`, lines[2])
	assert.Equal(t, `"r3","3/5/2024, 2:09:09 PM","Blue"`, lines[3])
}

func TestCSV_NoResponses(t *testing.T) {
	out, err := CSV(colorForm(), utc)

	assert.ErrorIs(t, err, ErrNoResponses)
	assert.Empty(t, out)
}

func TestCSV_Shape(t *testing.T) {
	form := colorForm("Red", "Blue", "Green", "Red", "Blue")
	form.Questions = append(form.Questions,
		entity.Question{ID: "q2", Text: "Why?", Type: entity.QuestionText},
		entity.Question{ID: "q3", Text: "Name", Type: entity.QuestionText},
	)

	out, err := CSV(form, utc)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, len(form.Responses)+1)

	for _, line := range lines {
		fields := strings.Split(line, ",")
		// the timestamp itself contains one comma
		if !strings.HasPrefix(line, `"Response ID"`) {
			assert.Len(t, fields, len(form.Questions)+3)
			continue
		}
		assert.Len(t, fields, len(form.Questions)+2)
	}
}

func TestCSV_SchemaDriftLeavesEmptyCell(t *testing.T) {
	form := colorForm("Red")
	form.Questions = append(form.Questions, entity.Question{ID: "q2", Text: "Added later", Type: entity.QuestionText})

	out, err := CSV(form, utc)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, `"Response ID","Submitted At","Color?","Added later"`, lines[0])
	assert.True(t, strings.HasSuffix(lines[1], `,"Red",""`))
}

func TestCSV_QuotesAreNotEscaped(t *testing.T) {
	out, err := CSV(colorForm(`say "hi", ok`), utc)
	require.NoError(t, err)

	assert.Contains(t, out, `"say "hi", ok"`)
}

func TestTimeFormatter(t *testing.T) {
	ts := time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC)

	tf, err := NewTimeFormatter("Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "1/1/2025, 8:30:00 AM", tf.Format(ts))

	_, err = NewTimeFormatter("Mars/Olympus")
	assert.Error(t, err)

	local, err := NewTimeFormatter("Local")
	require.NoError(t, err)
	assert.Equal(t, time.Local, local.Location)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Feedback-responses.csv", FileName(&entity.Form{Title: "Feedback"}))
}
