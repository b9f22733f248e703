// Package stats aggregates form responses into per-question statistics.
//
// Multiple-choice questions get a tally per declared option. A response
// without an answer for the question, or with a value that matches none of
// the declared options (for example after the options were edited), is not
// counted in any tally. Tallies can therefore add up to less than the total
// number of responses.
package stats

import (
	"math"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
)

type (
	// OptionTally is the number of responses that picked one option
	OptionTally struct {
		Option     string  `json:"option"`
		Count      int     `json:"count"`
		Percentage float64 `json:"percentage"`
	}

	// Result holds the statistics of one question
	Result struct {
		QuestionID     string              `json:"questionId"`
		Text           string              `json:"text"`
		Type           entity.QuestionType `json:"type"`
		TotalResponses int                 `json:"totalResponses"`
		Tallies        []OptionTally       `json:"tallies,omitempty"`
	}

	// Summary holds the statistics of a whole form
	Summary struct {
		FormID         string     `json:"formId"`
		Title          string     `json:"title"`
		TotalResponses int        `json:"totalResponses"`
		QuestionCount  int        `json:"questionCount"`
		LatestResponse *time.Time `json:"latestResponse,omitempty"`
		Questions      []Result   `json:"questions"`
	}
)

// Aggregate computes the statistics of question over responses.
// responses must be the complete set of the form, a partial set understates counts.
func Aggregate(question entity.Question, responses []entity.Response) Result {
	res := Result{
		QuestionID:     question.ID,
		Text:           question.Text,
		Type:           question.Type,
		TotalResponses: len(responses),
	}

	if question.Type != entity.QuestionMultipleChoice {
		return res
	}

	res.Tallies = make([]OptionTally, 0, len(question.Options))
	index := make(map[string]int, len(question.Options))

	// repeated labels share one tally
	for _, opt := range question.Options {
		if _, ok := index[opt]; ok {
			continue
		}
		index[opt] = len(res.Tallies)
		res.Tallies = append(res.Tallies, OptionTally{Option: opt})
	}

	for _, r := range responses {
		value, ok := r.Answer(question.ID)
		if !ok {
			continue
		}

		if i, ok := index[value]; ok {
			res.Tallies[i].Count++
		}
	}

	for i := range res.Tallies {
		res.Tallies[i].Percentage = Percentage(res.Tallies[i].Count, res.TotalResponses)
	}

	return res
}

// Summarize aggregates every question of form in declared order
func Summarize(form *entity.Form) Summary {
	sum := Summary{
		FormID:         form.ID,
		Title:          form.Title,
		TotalResponses: len(form.Responses),
		QuestionCount:  len(form.Questions),
		Questions:      make([]Result, 0, len(form.Questions)),
	}

	for _, q := range form.Questions {
		sum.Questions = append(sum.Questions, Aggregate(q, form.Responses))
	}

	for _, r := range form.Responses {
		if sum.LatestResponse == nil || r.SubmittedAt.After(*sum.LatestResponse) {
			t := r.SubmittedAt
			sum.LatestResponse = &t
		}
	}

	return sum
}

// Percentage returns count/total*100 rounded to one decimal, 0 when total is 0
func Percentage(count, total int) float64 {
	if total <= 0 {
		return 0
	}

	p := float64(count) / float64(total) * 100
	return math.Round(p*10) / 10
}

// TallySum returns the number of responses counted across all options
func (r Result) TallySum() int {
	sum := 0
	for _, t := range r.Tallies {
		sum += t.Count
	}
	return sum
}
