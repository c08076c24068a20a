// Package admin drives the CRUD screens of the admin panel.
//
// A Section wraps one backend collection (announcements, servers, world maps)
// and tracks where the screen is in its lifecycle. Handlers build a fresh
// Section per request, so state never leaks between visitors.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/domain"
)

type State int

const (
	Idle State = iota
	Loading
	Rendered
	LoadError
	FormOpen
	Deleting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Rendered:
		return "rendered"
	case LoadError:
		return "load_error"
	case FormOpen:
		return "form_open"
	case Deleting:
		return "deleting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var ErrInvalidTransition = errors.New("invalid section transition")

// Item is anything a section can list and address by id.
type Item interface {
	ItemID() uint
}

// Store is the backend side of a section. backend.Collection satisfies it.
type Store[T Item] interface {
	List(ctx context.Context, h backend.CredentialHolder) ([]T, error)
	Get(ctx context.Context, h backend.CredentialHolder, id uint) (*T, error)
	Create(ctx context.Context, h backend.CredentialHolder, body any) (*T, error)
	Update(ctx context.Context, h backend.CredentialHolder, id uint, body any) (*T, error)
	Delete(ctx context.Context, h backend.CredentialHolder, id uint) error
}

// Section is one admin list with its inline form.
//
//	Idle -> Loading -> Rendered | LoadError
//	Rendered -> FormOpen -> Loading (saved) | Rendered (cancelled)
//	Rendered -> Deleting -> Loading
//
// After a successful Save, Delete or Patch the section sits in Loading: the
// list is stale and the caller either calls Load or redirects to the list.
type Section[T Item] struct {
	Name   string
	store  Store[T]
	holder backend.CredentialHolder

	state   State
	Items   []T
	Editing *T
	EditID  uint
	Err     error
}

func NewSection[T Item](name string, store Store[T], holder backend.CredentialHolder) *Section[T] {
	return &Section[T]{Name: name, store: store, holder: holder}
}

func (s *Section[T]) State() State { return s.state }

func (s *Section[T]) transition(to State, from ...State) error {
	for _, f := range from {
		if s.state == f {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, s.Name, s.state, to)
}

// Load fetches the list. A failure leaves the section in LoadError with Err set.
func (s *Section[T]) Load(ctx context.Context) error {
	if err := s.transition(Loading, Idle, Loading, Rendered, LoadError); err != nil {
		return err
	}

	items, err := s.store.List(ctx, s.holder)
	if err != nil {
		s.state = LoadError
		s.Err = err
		return err
	}

	s.Items = items
	s.state = Rendered
	return nil
}

// Find returns one item, through the single-item endpoint when the resource
// has one and by scanning the list otherwise.
func (s *Section[T]) Find(ctx context.Context, id uint) (*T, error) {
	item, err := s.store.Get(ctx, s.holder, id)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, backend.ErrNoItemEndpoint) {
		return nil, err
	}

	items := s.Items
	if s.state != Rendered {
		if items, err = s.store.List(ctx, s.holder); err != nil {
			return nil, err
		}
	}
	for i := range items {
		if items[i].ItemID() == id {
			return &items[i], nil
		}
	}
	return nil, fmt.Errorf("%s %d: %w", s.Name, id, domain.ErrNotFound)
}

// OpenForm shows the edit form for id, or an empty create form when id is 0.
// If the item cannot be fetched the section stays Rendered with Err set.
func (s *Section[T]) OpenForm(ctx context.Context, id uint) error {
	if s.state != Rendered {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, s.Name, s.state, FormOpen)
	}

	if id == 0 {
		var zero T
		s.Editing = &zero
		s.EditID = 0
		s.state = FormOpen
		return nil
	}

	item, err := s.Find(ctx, id)
	if err != nil {
		s.Err = err
		return err
	}
	s.Editing = item
	s.EditID = id
	s.state = FormOpen
	return nil
}

func (s *Section[T]) Cancel() error {
	s.Editing = nil
	s.EditID = 0
	return s.transition(Rendered, FormOpen)
}

// Save updates item id, or creates a new one when id is 0. A submitted form
// may arrive without a prior OpenForm, so Idle is accepted as well. On failure
// the form stays open with Err set so the entered values can be shown again.
func (s *Section[T]) Save(ctx context.Context, id uint, body any) error {
	if err := s.transition(FormOpen, Idle, Rendered, FormOpen); err != nil {
		return err
	}
	s.EditID = id

	var err error
	if id != 0 {
		_, err = s.store.Update(ctx, s.holder, id, body)
	} else {
		_, err = s.store.Create(ctx, s.holder, body)
	}
	if err != nil {
		s.Err = err
		return err
	}

	s.Editing = nil
	s.state = Loading
	return nil
}

// Patch sends a partial update such as a pin toggle.
func (s *Section[T]) Patch(ctx context.Context, id uint, fields map[string]any) error {
	if err := s.transition(Loading, Idle, Rendered); err != nil {
		return err
	}
	if _, err := s.store.Update(ctx, s.holder, id, fields); err != nil {
		s.state = Rendered
		s.Err = err
		return err
	}
	return nil
}

// Delete removes item id. A rejected delete leaves the section Rendered with
// the list untouched and Err set.
func (s *Section[T]) Delete(ctx context.Context, id uint) error {
	if err := s.transition(Deleting, Idle, Rendered); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, s.holder, id); err != nil {
		s.state = Rendered
		s.Err = err
		return err
	}
	s.state = Loading
	return nil
}
