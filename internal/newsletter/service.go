package newsletter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// Status describes what a subscribe call did.
type Status string

const (
	StatusSubscribed        Status = "subscribed"
	StatusAlreadySubscribed Status = "already_subscribed"
	StatusResubscribed      Status = "resubscribed"
	StatusUnsubscribed      Status = "unsubscribed"
)

// Result is returned from subscribe and unsubscribe.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Created reports whether a new subscriber row was inserted.
func (r Result) Created() bool {
	return r.Status == StatusSubscribed
}

var messages = map[Status]string{
	StatusSubscribed:        "Successfully subscribed to the newsletter!",
	StatusAlreadySubscribed: "You are already subscribed!",
	StatusResubscribed:      "Welcome back! You have been re-subscribed.",
	StatusUnsubscribed:      "Successfully unsubscribed",
}

var validate = validator.New()

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	Subscribe(ctx context.Context, email string) (Result, error)
	Unsubscribe(ctx context.Context, email string) (Result, error)
}

type ServiceParams struct {
	Tx     txRunner
	Repo   Repository
	Outbox outbox.Emitter
	Logger *logger.Logger
	Clock  func() time.Time
}

type service struct {
	tx     txRunner
	repo   Repository
	outbox outbox.Emitter
	logg   *logger.Logger
	clock  func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, errors.New("tx runner required")
	}
	if params.Repo == nil {
		return nil, errors.New("newsletter repository required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		tx:     params.Tx,
		repo:   params.Repo,
		outbox: params.Outbox,
		logg:   params.Logger,
		clock:  clock,
	}, nil
}

// Subscribe is idempotent per email: a second call reports already_subscribed
// and an inactive subscriber is reactivated.
func (s *service) Subscribe(ctx context.Context, email string) (Result, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Result{}, err
	}

	var status Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.IsActive:
			status = StatusAlreadySubscribed
			return nil
		case err == nil:
			if err := repo.SetActive(ctx, existing, true, s.clock().UTC()); err != nil {
				return err
			}
			status = StatusResubscribed
			return s.emit(ctx, tx, enums.EventNewsletterSubscribed, existing)
		case !isNotFound(err):
			return err
		}

		sub := &models.NewsletterSubscriber{Email: email, IsActive: true}
		if err := repo.Create(ctx, sub); err != nil {
			return err
		}
		status = StatusSubscribed
		return s.emit(ctx, tx, enums.EventNewsletterSubscribed, sub)
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "newsletter_subscribers_email_key") {
			return s.result(StatusAlreadySubscribed), nil
		}
		s.logg.Error(s.logg.WithField(ctx, "email", email), "newsletter subscribe failed", err)
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to subscribe")
	}
	s.logg.Info(s.logg.WithField(ctx, "status", status), "newsletter subscription")
	return s.result(status), nil
}

func (s *service) Unsubscribe(ctx context.Context, email string) (Result, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Result{}, err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if !existing.IsActive {
			return nil
		}
		if err := repo.SetActive(ctx, existing, false, s.clock().UTC()); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventNewsletterUnsubscribed, existing)
	})
	if err != nil {
		if isNotFound(err) {
			return Result{}, pkgerrors.New(pkgerrors.CodeNotFound, "email is not subscribed")
		}
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to unsubscribe")
	}
	return s.result(StatusUnsubscribed), nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, sub *models.NewsletterSubscriber) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateSubscriber,
		AggregateID:   sub.ID,
		Actor:         &outbox.ActorRef{Email: sub.Email},
		Data: payloads.NewsletterSubscriptionEvent{
			SubscriberID: sub.ID,
			Email:        sub.Email,
			Active:       sub.IsActive,
		},
	})
}

func (s *service) result(status Status) Result {
	return Result{Status: status, Message: messages[status]}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Email is required").
			WithDetails(map[string]string{"email": "is required"})
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Please provide a valid email address").
			WithDetails(map[string]string{"email": "must be a valid email"})
	}
	return email, nil
}
