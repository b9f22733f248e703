// Package entity defines the core data structures used throughout the application
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionType tells how a question is answered
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple-choice"
)

// DefaultOptions are given to a multiple-choice question created without any
var DefaultOptions = []string{"Option 1", "Option 2", "Option 3", "Option 4"}

type (
	// Question represents a single prompt within a form
	Question struct {
		RowID    uint         `gorm:"primaryKey" json:"-" bson:"-"`                          // Storage key, ids are only unique per form
		FormID   string       `gorm:"type:varchar(36);index" json:"-" bson:"-"`              // Reference to the parent form
		ID       string       `gorm:"column:question_id;type:varchar(64)" json:"id" bson:"id"` // Unique within the form
		Text     string       `json:"text" bson:"text"`
		Type     QuestionType `gorm:"type:varchar(32)" json:"type" bson:"type"`
		Options  []string     `gorm:"serializer:json" json:"options,omitempty" bson:"options,omitempty"` // Only for multiple-choice
		Position int          `json:"-" bson:"-"`                                              // Order inside the form
	}

	// Answer is the value given to one question
	Answer struct {
		QuestionID string `json:"questionId" bson:"questionId"`
		Value      string `json:"value" bson:"value"`
	}

	// Response is one respondent's submission, immutable once stored
	Response struct {
		RowID       uint      `gorm:"primaryKey" json:"-" bson:"-"`
		ID          string    `gorm:"column:response_id;type:varchar(36);uniqueIndex" json:"id" bson:"id"`
		FormID      string    `gorm:"type:varchar(36);index" json:"formId" bson:"formId"`
		Answers     []Answer  `gorm:"serializer:json" json:"answers" bson:"answers"`
		SubmittedAt time.Time `json:"submittedAt" bson:"submittedAt"`
	}

	// Form is a named collection of questions plus accumulated responses
	Form struct {
		ID        string     `gorm:"type:varchar(36);primaryKey" json:"id" bson:"_id"`
		Title     string     `json:"title" bson:"title"`
		Questions []Question `gorm:"foreignKey:FormID;references:ID" json:"questions" bson:"questions"`
		Responses []Response `gorm:"foreignKey:FormID;references:ID" json:"responses" bson:"responses"`
		CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
		UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
	}

	// OutputForm is the public view of a form, responses are never exposed
	OutputForm struct {
		ID        string     `json:"id"`
		Title     string     `json:"title"`
		Questions []Question `json:"questions"`
		CreatedAt time.Time  `json:"createdAt"`
	}
)

// NewID returns a random unique identifier
func NewID() string {
	return uuid.NewString()
}

// NewForm returns a blank draft with a single empty text question
func NewForm() *Form {
	return &Form{
		ID: NewID(),
		Questions: []Question{
			{ID: NewID(), Type: QuestionText},
		},
		Responses: []Response{},
		CreatedAt: time.Now().UTC(),
	}
}

// IsValid reports whether t is a known question type
func (t QuestionType) IsValid() bool {
	return t == QuestionText || t == QuestionMultipleChoice
}

// Question returns the question with the given id
func (f *Form) Question(id string) (*Question, bool) {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return &f.Questions[i], true
		}
	}
	return nil, false
}

// Response returns the response with the given id
func (f *Form) Response(id string) (*Response, bool) {
	for i := range f.Responses {
		if f.Responses[i].ID == id {
			return &f.Responses[i], true
		}
	}
	return nil, false
}

// Answer returns the value recorded for a question and whether one exists
func (r Response) Answer(questionID string) (string, bool) {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a.Value, true
		}
	}
	return "", false
}

// Normalize trims user input and fixes up question options by type
func (f *Form) Normalize() {
	f.Title = strings.TrimSpace(f.Title)

	for i := range f.Questions {
		q := &f.Questions[i]
		q.Text = strings.TrimSpace(q.Text)
		q.Position = i

		if q.ID == "" {
			q.ID = NewID()
		}
		if q.Type == "" {
			q.Type = QuestionText
		}

		switch q.Type {
		case QuestionText:
			q.Options = nil
		case QuestionMultipleChoice:
			if len(q.Options) == 0 {
				q.Options = append([]string(nil), DefaultOptions...)
			}
		}
	}
}

// Validate checks the required fields of an edited form
func (f *Form) Validate() error {
	verr := &ValidationError{Message: "invalid form"}

	if f.ID == "" {
		verr.Add("id", "form id can not be empty")
	}
	if strings.TrimSpace(f.Title) == "" {
		verr.Add("title", "please enter a form title")
	}
	if len(f.Questions) == 0 {
		verr.Add("questions", "form needs at least one question")
	}

	seen := make(map[string]bool, len(f.Questions))
	for _, q := range f.Questions {
		field := "questions[" + q.ID + "]"
		if q.ID == "" {
			field = "questions"
		}

		if seen[q.ID] {
			verr.Add(field, "duplicate question id")
		}
		seen[q.ID] = true

		if strings.TrimSpace(q.Text) == "" {
			verr.Add(field, "please fill in all question texts")
		}
		if !q.Type.IsValid() {
			verr.Add(field, "unknown question type "+string(q.Type))
		}
		if q.Type == QuestionMultipleChoice && len(q.Options) < 2 {
			verr.Add(field, "multiple-choice question needs at least 2 options")
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// ToOutput converts a Form entity to its public representation
func (f *Form) ToOutput() OutputForm {
	questions := make([]Question, len(f.Questions))
	copy(questions, f.Questions)

	return OutputForm{
		ID:        f.ID,
		Title:     f.Title,
		Questions: questions,
		CreatedAt: f.CreatedAt,
	}
}

// Clone returns a deep copy of the form
func (f *Form) Clone() *Form {
	out := *f

	out.Questions = make([]Question, len(f.Questions))
	for i, q := range f.Questions {
		q.Options = cloneStrings(q.Options)
		out.Questions[i] = q
	}

	out.Responses = make([]Response, len(f.Responses))
	for i, r := range f.Responses {
		out.Responses[i] = r.Clone()
	}

	return &out
}

// Clone returns a deep copy of the response
func (r Response) Clone() Response {
	if r.Answers != nil {
		answers := make([]Answer, len(r.Answers))
		copy(answers, r.Answers)
		r.Answers = answers
	}
	return r
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
