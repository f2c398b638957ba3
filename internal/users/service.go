package users

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"userdesk/internal/models"
	"userdesk/shared/logger"
)

const instrumentation = "userdesk/internal/users"

var tracer = otel.Tracer(instrumentation)

// Operation outcomes recorded on the operations counter.
const (
	outcomeOK           = "ok"
	outcomeUnauthorized = "unauthorized"
	outcomeInvalid      = "invalid"
	outcomeConflict     = "conflict"
	outcomeNotFound     = "not_found"
	outcomeError        = "error"
)

// Service performs the session-gated user operations. Every call is a single
// stateless pass over the store; the email uniqueness lookup and the write
// that follows are not wrapped in a transaction, so the store's unique
// constraint is what settles concurrent writers (reported as ErrEmailTaken).
type Service struct {
	store Store
	views Invalidator
	ops   metric.Int64Counter
}

// NewService creates a Service. A nil Invalidator disables view invalidation.
func NewService(store Store, views Invalidator) *Service {
	if views == nil {
		views = nopInvalidator{}
	}

	ops, err := otel.Meter(instrumentation).Int64Counter(
		"userdesk.users.operations",
		metric.WithDescription("User operations by outcome"),
	)
	if err != nil {
		logger.Warn("Failed to create operations counter", logger.Err(err))
		ops = noop.Int64Counter{}
	}

	return &Service{store: store, views: views, ops: ops}
}

// Create validates and inserts a new user.
func (s *Service) Create(ctx context.Context, p *models.Principal, in models.UserInput) (Envelope, error) {
	ctx, span := tracer.Start(ctx, "users.Create")
	defer span.End()

	if _, err := RequireSession(p); err != nil {
		s.done(ctx, span, "create", outcomeUnauthorized, err)
		return Envelope{}, err
	}

	valid, errs := Validate(in)
	if len(errs) > 0 {
		s.done(ctx, span, "create", outcomeInvalid, nil)
		return Fail(MsgValidationFailed, ErrValidation, errs), nil
	}

	existing, err := s.store.FindByEmail(ctx, valid.Email)
	switch {
	case err == nil && existing != nil:
		s.done(ctx, span, "create", outcomeConflict, nil)
		return emailInUse(), nil
	case err != nil && !errors.Is(err, ErrNotFound):
		logger.Error("Failed to look up user by email", logger.Err(err))
		s.done(ctx, span, "create", outcomeError, err)
		return Fail(MsgCreateFailed, ErrStoreFailure, nil), nil
	}

	user, err := s.store.Insert(ctx, valid)
	if errors.Is(err, ErrEmailTaken) {
		s.done(ctx, span, "create", outcomeConflict, nil)
		return emailInUse(), nil
	}
	if err != nil {
		logger.Error("Failed to create user", logger.Err(err))
		s.done(ctx, span, "create", outcomeError, err)
		return Fail(MsgCreateFailed, ErrStoreFailure, nil), nil
	}

	s.views.Invalidate(ctx, ViewHome, ViewUsers)
	span.SetAttributes(attribute.Int64("user.id", user.ID))
	s.done(ctx, span, "create", outcomeOK, nil)
	logger.Info("User created", logger.Int64("user_id", user.ID), logger.String("principal", p.ID))
	return Succeed(MsgCreated, user), nil
}

// ListUsers returns every user ordered by id. Store failures are returned
// wrapped in ErrStoreFailure so callers can tell them apart from an empty list.
func (s *Service) ListUsers(ctx context.Context, p *models.Principal) ([]models.User, error) {
	ctx, span := tracer.Start(ctx, "users.List")
	defer span.End()

	if _, err := RequireSession(p); err != nil {
		s.done(ctx, span, "list", outcomeUnauthorized, err)
		return nil, err
	}

	users, err := s.store.List(ctx)
	if err != nil {
		logger.Error("Failed to fetch users", logger.Err(err))
		s.done(ctx, span, "list", outcomeError, err)
		return nil, storeFailure("list users", err)
	}
	if users == nil {
		users = []models.User{}
	}

	span.SetAttributes(attribute.Int("users.count", len(users)))
	s.done(ctx, span, "list", outcomeOK, nil)
	return users, nil
}

// GetUser returns the user with the given id, or nil when there is none.
func (s *Service) GetUser(ctx context.Context, p *models.Principal, id int64) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "users.Get", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	if _, err := RequireSession(p); err != nil {
		s.done(ctx, span, "get", outcomeUnauthorized, err)
		return nil, err
	}

	user, err := s.store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.done(ctx, span, "get", outcomeNotFound, nil)
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to fetch user", logger.Int64("user_id", id), logger.Err(err))
		s.done(ctx, span, "get", outcomeError, err)
		return nil, storeFailure("get user", err)
	}

	s.done(ctx, span, "get", outcomeOK, nil)
	return user, nil
}

// Update applies a partial update to the user with the given id.
func (s *Service) Update(ctx context.Context, p *models.Principal, id int64, patch models.UserPatch) (Envelope, error) {
	ctx, span := tracer.Start(ctx, "users.Update", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	if _, err := RequireSession(p); err != nil {
		s.done(ctx, span, "update", outcomeUnauthorized, err)
		return Envelope{}, err
	}

	patch, errs := ValidatePatch(patch)
	if len(errs) > 0 {
		s.done(ctx, span, "update", outcomeInvalid, nil)
		return Fail(MsgValidationFailed, ErrValidation, errs), nil
	}

	if patch.IsEmpty() {
		return s.unchanged(ctx, span, id)
	}

	if patch.Email != nil {
		existing, err := s.store.FindByEmail(ctx, *patch.Email)
		switch {
		case err == nil && existing != nil && existing.ID != id:
			s.done(ctx, span, "update", outcomeConflict, nil)
			return emailTakenByOther(), nil
		case err != nil && !errors.Is(err, ErrNotFound):
			logger.Error("Failed to look up user by email", logger.Err(err))
			s.done(ctx, span, "update", outcomeError, err)
			return Fail(MsgUpdateFailed, ErrStoreFailure, nil), nil
		}
	}

	user, err := s.store.Update(ctx, id, patch)
	switch {
	case errors.Is(err, ErrNotFound):
		s.done(ctx, span, "update", outcomeNotFound, nil)
		return Fail(MsgNotFound, ErrNotFound, nil), nil
	case errors.Is(err, ErrEmailTaken):
		s.done(ctx, span, "update", outcomeConflict, nil)
		return emailTakenByOther(), nil
	case err != nil:
		logger.Error("Failed to update user", logger.Int64("user_id", id), logger.Err(err))
		s.done(ctx, span, "update", outcomeError, err)
		return Fail(MsgUpdateFailed, ErrStoreFailure, nil), nil
	}

	s.views.Invalidate(ctx, ViewHome, ViewUsers, UserView(id))
	s.done(ctx, span, "update", outcomeOK, nil)
	logger.Info("User updated", logger.Int64("user_id", id), logger.String("principal", p.ID))
	return Succeed(MsgUpdated, user), nil
}

// unchanged answers an empty patch with the current record.
func (s *Service) unchanged(ctx context.Context, span trace.Span, id int64) (Envelope, error) {
	user, err := s.store.FindByID(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		s.done(ctx, span, "update", outcomeNotFound, nil)
		return Fail(MsgNotFound, ErrNotFound, nil), nil
	case err != nil:
		logger.Error("Failed to fetch user", logger.Int64("user_id", id), logger.Err(err))
		s.done(ctx, span, "update", outcomeError, err)
		return Fail(MsgUpdateFailed, ErrStoreFailure, nil), nil
	}
	s.done(ctx, span, "update", outcomeOK, nil)
	return Succeed(MsgUpdated, user), nil
}

// Delete removes the user with the given id. Deleting an absent user succeeds.
func (s *Service) Delete(ctx context.Context, p *models.Principal, id int64) (Envelope, error) {
	ctx, span := tracer.Start(ctx, "users.Delete", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	if _, err := RequireSession(p); err != nil {
		s.done(ctx, span, "delete", outcomeUnauthorized, err)
		return Envelope{}, err
	}

	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		logger.Error("Failed to delete user", logger.Int64("user_id", id), logger.Err(err))
		s.done(ctx, span, "delete", outcomeError, err)
		return Fail(MsgDeleteFailed, ErrStoreFailure, nil), nil
	}

	s.views.Invalidate(ctx, ViewHome, ViewUsers, UserView(id))
	s.done(ctx, span, "delete", outcomeOK, nil)
	logger.Info("User deleted", logger.Int64("user_id", id), logger.String("principal", p.ID))
	return Succeed(MsgDeleted, nil), nil
}

func (s *Service) done(ctx context.Context, span trace.Span, op, outcome string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	s.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func emailInUse() Envelope {
	errs := FieldErrors{}
	errs.Add("email", MsgEmailInUseAt)
	return Fail(MsgEmailInUse, ErrEmailTaken, errs)
}

func emailTakenByOther() Envelope {
	errs := FieldErrors{}
	errs.Add("email", MsgEmailTakenByID)
	return Fail(MsgEmailTakenByID, ErrEmailTaken, errs)
}
