package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/pkg/config"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// FormService is what the listener drives for each request type
type FormService interface {
	SaveForm(ctx context.Context, form *entity.Form) (*entity.Form, error)
	SubmitResponse(ctx context.Context, formID string, answers map[string]string) (*entity.Response, error)
	DeleteForm(ctx context.Context, id string) error
}

type Listener struct {
	inputChan <-chan entity.Event
	logger    *logger.Logger
	service   FormService
	cfg       *config.Config
	timeout   time.Duration
}

func Init(
	inputChan <-chan entity.Event,
	logger *logger.Logger,
	cfg *config.Config,
	service FormService,
) *Listener {
	return &Listener{
		inputChan: inputChan,
		service:   service,
		logger:    logger,
		cfg:       cfg,
		timeout:   cfg.RequestTimeout,
	}
}

// Listen handles events until ctx is done or the input channel is closed.
// A failed request is logged and skipped.
func (list *Listener) Listen(ctx context.Context) {
	for {
		select {
		case event, ok := <-list.inputChan:
			if !ok {
				list.logger.Info("input channel closed, stopping listener")
				return
			}

			if err := list.handle(ctx, event); err != nil {
				list.logger.Error("error handle event",
					zap.String("event_type", event.Type),
					zap.String("event_id", event.ID),
					zap.Error(err))
			}

		case <-ctx.Done():
			list.logger.Info("stopping listeners...")
			return
		}
	}
}

func (list *Listener) handle(ctx context.Context, event entity.Event) error {
	if list.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, list.timeout)
		defer cancel()
	}

	switch event.Type {
	case list.cfg.Reqs.SaveRequestType:
		form := new(entity.Form)
		if err := sonic.Unmarshal(event.Payload, form); err != nil {
			return fmt.Errorf("error unmarshal event payload to form: %w", err)
		}

		if _, err := list.service.SaveForm(ctx, form); err != nil {
			return fmt.Errorf("error save form: %w", err)
		}

	case list.cfg.Reqs.SubmitRequestType:
		req := new(entity.SubmitRequest)
		if err := sonic.Unmarshal(event.Payload, req); err != nil {
			return fmt.Errorf("error unmarshal event payload to response: %w", err)
		}

		if _, err := list.service.SubmitResponse(ctx, req.FormID, req.Answers); err != nil {
			return fmt.Errorf("error submit response: %w", err)
		}

	case list.cfg.Reqs.DeleteFormRequestType:
		ref := new(entity.FormRef)
		if err := sonic.Unmarshal(event.Payload, ref); err != nil {
			return fmt.Errorf("error unmarshal event payload to form ref: %w", err)
		}

		if err := list.service.DeleteForm(ctx, ref.FormID); err != nil {
			return fmt.Errorf("error delete form: %w", err)
		}

	default:
		list.logger.Warn("unknown event type", zap.String("event_type", event.Type))
	}

	return nil
}
