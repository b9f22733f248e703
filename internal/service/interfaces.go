package service

import (
	"context"

	"github.com/Koyo-os/form-builder/internal/entity"
)

type (
	Repository interface {
		Get(ctx context.Context, id string) (*entity.Form, error)
		List(ctx context.Context) ([]entity.Form, error)
		Save(ctx context.Context, form *entity.Form) error
		DeleteForm(ctx context.Context, id string) error
		AppendResponse(ctx context.Context, formID string, response *entity.Response) error
		GetResponse(ctx context.Context, formID, responseID string) (*entity.Response, error)
	}

	Publisher interface {
		Publish(any, string) error
	}

	Casher interface {
		AddToCash(ctx context.Context, key string, payload any) error
		GetCashFor(ctx context.Context, key string) ([]byte, error)
		RemoveFromCash(ctx context.Context, key string) error
	}
)
