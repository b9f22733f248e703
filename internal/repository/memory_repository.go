package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/Koyo-os/form-builder/internal/entity"
)

// MemoryRepository keeps forms in process memory, keyed by id.
// Forms are copied on the way in and out, callers never share state with it.
type MemoryRepository struct {
	mu    sync.RWMutex
	forms map[string]*entity.Form
	order []string
}

func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		forms: make(map[string]*entity.Form),
	}
}

func (m *MemoryRepository) Create(_ context.Context, form *entity.Form) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.put(form.Clone())
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*entity.Form, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	form, ok := m.forms[id]
	if !ok {
		return nil, entity.ErrFormNotFound
	}

	return form.Clone(), nil
}

func (m *MemoryRepository) List(_ context.Context) ([]entity.Form, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entity.Form, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.forms[id].Clone())
	}

	return out, nil
}

// Save drops any form with the same id and appends the new one at the end
func (m *MemoryRepository) Save(_ context.Context, form *entity.Form) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.remove(form.ID)
	m.put(form.Clone())
	return nil
}

func (m *MemoryRepository) DeleteForm(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.remove(id) {
		return entity.ErrFormNotFound
	}
	return nil
}

func (m *MemoryRepository) AppendResponse(_ context.Context, formID string, response *entity.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	form, ok := m.forms[formID]
	if !ok {
		return entity.ErrFormNotFound
	}

	response.FormID = formID
	form.Responses = append(form.Responses, response.Clone())
	return nil
}

func (m *MemoryRepository) GetResponse(_ context.Context, formID, responseID string) (*entity.Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	form, ok := m.forms[formID]
	if !ok {
		return nil, entity.ErrFormNotFound
	}

	r, ok := form.Response(responseID)
	if !ok {
		return nil, entity.ErrResponseNotFound
	}

	out := r.Clone()
	return &out, nil
}

func (m *MemoryRepository) IsHealthy() bool {
	return true
}

func (m *MemoryRepository) Close() error {
	return nil
}

func (m *MemoryRepository) put(form *entity.Form) {
	if _, ok := m.forms[form.ID]; !ok {
		m.order = append(m.order, form.ID)
	}
	m.forms[form.ID] = form
}

func (m *MemoryRepository) remove(id string) bool {
	if _, ok := m.forms[id]; !ok {
		return false
	}

	delete(m.forms, id)
	m.order = slices.DeleteFunc(m.order, func(v string) bool { return v == id })
	return true
}
