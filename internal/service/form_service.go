package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/internal/export"
	"github.com/Koyo-os/form-builder/internal/stats"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/Koyo-os/form-builder/pkg/retrier"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// maxCacheWait bounds each cache call made on behalf of a request
const maxCacheWait = time.Second

type Service struct {
	casher    Casher
	repo      Repository
	publisher Publisher
	logger    *logger.Logger
	formatter export.TimeFormatter

	timeout    time.Duration
	cacheRetry retrier.RetrierOpts
	now        func() time.Time
}

func Init(
	casher Casher,
	repo Repository,
	publisher Publisher,
	timeout time.Duration,
	logger *logger.Logger,
	formatter export.TimeFormatter,
) *Service {
	return &Service{
		casher:     casher,
		repo:       repo,
		publisher:  publisher,
		logger:     logger,
		formatter:  formatter,
		timeout:    timeout,
		cacheRetry: retrier.RetrierOpts{Count: 2, Interval: 0},
		now:        time.Now,
	}
}

// NewForm returns a blank draft, it is stored only once saved
func (s *Service) NewForm() *entity.Form {
	form := entity.NewForm()
	form.CreatedAt = s.now().UTC()
	return form
}

// SaveForm validates the form and stores it under its id, replacing any
// previous version. Responses and the creation time of an existing form are kept.
func (s *Service) SaveForm(ctx context.Context, form *entity.Form) (*entity.Form, error) {
	if form == nil {
		return nil, errors.New("form cannot be nil")
	}

	form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	event := entity.EventFormUpdated

	existing, err := s.repo.Get(ctx, form.ID)
	switch {
	case errors.Is(err, entity.ErrFormNotFound):
		event = entity.EventFormCreated
		form.Responses = []entity.Response{}
		if form.CreatedAt.IsZero() {
			form.CreatedAt = s.now().UTC()
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load form: %w", err)
	default:
		form.Responses = existing.Responses
		form.CreatedAt = existing.CreatedAt
	}

	form.UpdatedAt = s.now().UTC()

	if err = s.repo.Save(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to save form in repository: %w", err)
	}

	s.afterWrite(form.ID, event, form)

	return form, nil
}

// GetForm returns a form, served from cache when possible
func (s *Service) GetForm(ctx context.Context, id string) (*entity.Form, error) {
	if data, err := s.casher.GetCashFor(ctx, id); err == nil {
		form := new(entity.Form)
		if err = sonic.Unmarshal(data, form); err == nil {
			return form, nil
		}

		s.logger.Warn("error decode cached form",
			zap.String("form_id", id),
			zap.Error(err))
	}

	form, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache(form)

	return form, nil
}

func (s *Service) ListForms(ctx context.Context) ([]entity.Form, error) {
	forms, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}

	return forms, nil
}

func (s *Service) DeleteForm(ctx context.Context, id string) error {
	if err := s.repo.DeleteForm(ctx, id); err != nil {
		if errors.Is(err, entity.ErrFormNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete form from repository: %w", err)
	}

	s.afterWrite(id, entity.EventFormDeleted, entity.FormRef{FormID: id})

	return nil
}

// SubmitResponse records one respondent's answers, keyed by question id.
// Every question of the form needs a non-blank answer; values are trimmed
// and answers for unknown questions are ignored.
func (s *Service) SubmitResponse(ctx context.Context, formID string, answers map[string]string) (*entity.Response, error) {
	form, err := s.load(ctx, formID)
	if err != nil {
		return nil, err
	}

	verr := &entity.ValidationError{Message: "please answer all questions before submitting"}
	response := &entity.Response{
		ID:          entity.NewID(),
		FormID:      form.ID,
		Answers:     make([]entity.Answer, 0, len(form.Questions)),
		SubmittedAt: s.now().UTC(),
	}

	for _, q := range form.Questions {
		value := strings.TrimSpace(answers[q.ID])
		if value == "" {
			verr.Add("answers."+q.ID, "answer is required")
			continue
		}

		response.Answers = append(response.Answers, entity.Answer{QuestionID: q.ID, Value: value})
	}

	if !verr.Empty() {
		return nil, verr
	}

	if err = s.repo.AppendResponse(ctx, form.ID, response); err != nil {
		if errors.Is(err, entity.ErrFormNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store response: %w", err)
	}

	s.afterWrite(form.ID, entity.EventResponseSubmitted, response)

	return response, nil
}

func (s *Service) GetResponse(ctx context.Context, formID, responseID string) (*entity.Response, error) {
	response, err := s.repo.GetResponse(ctx, formID, responseID)
	if err != nil {
		if errors.Is(err, entity.ErrFormNotFound) || errors.Is(err, entity.ErrResponseNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get response: %w", err)
	}

	return response, nil
}

// Stats aggregates every response of the form, always read from the repository
func (s *Service) Stats(ctx context.Context, formID string) (stats.Summary, error) {
	form, err := s.load(ctx, formID)
	if err != nil {
		return stats.Summary{}, err
	}

	return stats.Summarize(form), nil
}

// ExportCSV renders the responses of a form and the file name to download them as
func (s *Service) ExportCSV(ctx context.Context, formID string) (string, string, error) {
	form, err := s.load(ctx, formID)
	if err != nil {
		return "", "", err
	}

	content, err := export.CSV(form, s.formatter)
	if err != nil {
		return "", "", err
	}

	return export.FileName(form), content, nil
}

func (s *Service) load(ctx context.Context, id string) (*entity.Form, error) {
	form, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrFormNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get form: %w", err)
	}

	return form, nil
}

// afterWrite evicts the cached form while the event is published.
// Only GetForm fills the cache, from what the repository holds.
func (s *Service) afterWrite(formID, event string, payload any) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		s.evict(formID)
	}()

	s.publish(payload, event)

	<-done
}

func (s *Service) evict(formID string) {
	err := retrier.Do(uint8(s.cacheRetry.Count), s.cacheRetry.Interval, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), s.cacheTimeout())
		defer cancel()

		return s.casher.RemoveFromCash(ctx, formID)
	})
	if err != nil {
		s.logger.Warn("error evict form from cache",
			zap.String("form_id", formID),
			zap.Error(err))
	}
}

// cache stores a form read from the repository, a failure only costs a miss
func (s *Service) cache(form *entity.Form) {
	data, err := sonic.Marshal(form)
	if err != nil {
		s.logger.Error("error encode form for cache",
			zap.String("form_id", form.ID),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cacheTimeout())
	defer cancel()

	if err = s.casher.AddToCash(ctx, form.ID, data); err != nil {
		s.logger.Warn("error cache form",
			zap.String("form_id", form.ID),
			zap.Error(err))
	}
}

func (s *Service) cacheTimeout() time.Duration {
	if s.timeout > 0 && s.timeout < maxCacheWait {
		return s.timeout
	}
	return maxCacheWait
}

func (s *Service) publish(payload any, event string) {
	if err := s.publisher.Publish(payload, event); err != nil {
		s.logger.Warn("error publish event",
			zap.String("event_type", event),
			zap.Error(err))
	}
}
