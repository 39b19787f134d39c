package restore

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ALT-F4-LLC/spacerestore/internal/api"
	"github.com/ALT-F4-LLC/spacerestore/internal/logging"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
)

var (
	// ErrConflictUnresolved is returned when a create conflicted but the
	// existing resource could not be located.
	ErrConflictUnresolved = errors.New("conflict: existing resource not found")

	// ErrEmptyBatch is returned when a declared type has no resources.
	ErrEmptyBatch = errors.New("no resources to restore")
)

// Service restores single resources with create, falling back to update
// when the create conflicts with an existing resource.
type Service struct {
	Transport api.Transport
	Strategy  Strategy
}

var _ Upserter = (*Service)(nil)

// NewService returns a Service for strategy s.
func NewService(t api.Transport, s Strategy) *Service {
	return &Service{Transport: t, Strategy: s}
}

// Restore creates r in the target space. When the create fails with a
// conflict and the strategy can locate the existing resource, that resource
// is updated with r's payload instead. Every write requests publication.
func (s *Service) Restore(ctx context.Context, r model.Resource, opts model.Options) (model.Resource, error) {
	log := logging.For(ctx).WithFields(logrus.Fields{"resource": r.ID(), "label": r.Label()})

	created, err := s.create(ctx, r, opts)
	if err == nil {
		log.Debug("created")
		return created, nil
	}

	if !s.isConflict(err) {
		return model.Resource{}, fmt.Errorf("create: %w", err)
	}
	log.WithError(err).Debug("create conflicted, locating existing resource")

	finder, ok := s.Strategy.(Finder)
	if !ok {
		return model.Resource{}, fmt.Errorf("%w: %w", ErrConflictUnresolved, err)
	}

	existing, found, findErr := finder.FindExisting(ctx, s.Transport, r, opts)
	if findErr != nil {
		return model.Resource{}, fmt.Errorf("locating existing resource after conflict (%v): %w", err, findErr)
	}
	if !found {
		return model.Resource{}, fmt.Errorf("%w: %w", ErrConflictUnresolved, err)
	}

	resp, err := s.Transport.Put(ctx, s.Strategy.UpdateEndpoint(existing, opts), s.payload(r))
	if err != nil {
		return model.Resource{}, fmt.Errorf("update existing %d: %w", existing.ID(), err)
	}
	updated, err := s.Strategy.DecodeResponse(resp)
	if err != nil {
		return model.Resource{}, fmt.Errorf("update existing %d: %w", existing.ID(), err)
	}

	log.WithField("existing", existing.ID()).Debug("updated existing")
	return updated, nil
}

func (s *Service) create(ctx context.Context, r model.Resource, opts model.Options) (model.Resource, error) {
	if c, ok := s.Strategy.(Creator); ok {
		return c.Create(ctx, s.Transport, r, opts)
	}

	resp, err := s.Transport.Post(ctx, s.Strategy.CreateEndpoint(opts), s.payload(r))
	if err != nil {
		return model.Resource{}, err
	}
	created, err := s.Strategy.DecodeResponse(resp)
	if err != nil {
		// A created resource that cannot be decoded is not a conflict.
		return model.Resource{}, &decodeError{err: err}
	}
	return created, nil
}

func (s *Service) payload(r model.Resource) map[string]any {
	payload := s.Strategy.BuildPayload(r)
	if payload == nil {
		payload = make(map[string]any, 1)
	}
	payload["publish"] = 1
	return payload
}

func (s *Service) isConflict(err error) bool {
	var de *decodeError
	if errors.As(err, &de) {
		return false
	}
	if c, ok := s.Strategy.(ConflictClassifier); ok {
		return c.IsConflict(err)
	}
	return IsConflict(err)
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "decoding response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }
