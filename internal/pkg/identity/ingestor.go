// Package identity mirrors identity-provider users into the local database
// from signed user-lifecycle webhooks.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/PhotoAI/app/models"
	"github.com/ManuelReschke/PhotoAI/app/repository"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
)

var (
	ErrUnconfigured     = errors.New("identity webhook signing secret is not configured")
	ErrSignatureInvalid = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrStore            = errors.New("identity store failure")
)

// Result describes what a delivery did.
type Result struct {
	EventType string
	Duplicate bool
	Ignored   bool
}

// Ingestor verifies identity webhooks and applies them to the user mirror.
type Ingestor struct {
	secret string
	users  repository.UserRepository
	events repository.WebhookEventRepository
	now    func() time.Time
}

func NewIngestor(secret string, users repository.UserRepository, events repository.WebhookEventRepository) *Ingestor {
	return &Ingestor{
		secret: secret,
		users:  users,
		events: events,
		now:    time.Now,
	}
}

// NewIngestorFromEnv reads SIGNING_SECRET. A missing secret is not fatal;
// every delivery then fails with ErrUnconfigured.
func NewIngestorFromEnv(repos *repository.Repositories) *Ingestor {
	secret, _ := env.RequireEnv("SIGNING_SECRET")
	return NewIngestor(secret, repos.User, repos.WebhookEvent)
}

// HandleEvent verifies and applies one delivery. Deliveries are deduplicated
// by their svix-id; a delivery that was already applied without error is
// acknowledged again without touching the user table.
func (i *Ingestor) HandleEvent(ctx context.Context, body []byte, h Headers) (*Result, error) {
	if i.secret == "" {
		return nil, ErrUnconfigured
	}
	if err := VerifySignature(i.secret, h, body, i.now()); err != nil {
		return nil, err
	}

	evt, err := parseEvent(body)
	if err != nil {
		return nil, err
	}
	res := &Result{EventType: evt.Type}

	created, stored, err := i.events.CreateIfNotExists(ctx, &models.WebhookEvent{
		Source:         models.WebhookSourceClerk,
		DeliveryID:     h.ID,
		EventType:      evt.Type,
		Payload:        datatypes.JSON(body),
		SignatureValid: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: record delivery: %v", ErrStore, err)
	}
	if !created && stored.Succeeded() {
		log.Infof("[Identity] Duplicate delivery %s (%s) ignored", h.ID, evt.Type)
		res.Duplicate = true
		return res, nil
	}

	applyErr := i.apply(ctx, evt, res)

	errMsg := ""
	if applyErr != nil {
		errMsg = applyErr.Error()
	}
	if err := i.events.MarkProcessed(ctx, stored.ID, errMsg); err != nil {
		log.Warnf("[Identity] Failed to mark delivery %s processed: %v", h.ID, err)
	}

	if applyErr != nil {
		log.Errorf("[Identity] Failed to apply %s delivery %s: %v", evt.Type, h.ID, applyErr)
		return nil, applyErr
	}
	return res, nil
}

func (i *Ingestor) apply(ctx context.Context, evt *Event, res *Result) error {
	switch evt.Type {
	case EventUserCreated, EventUserUpdated:
		data, err := parseUserData(evt.Data)
		if err != nil {
			return err
		}
		user := data.ToUser()
		if err := user.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if err := i.users.UpsertByExternalID(ctx, user); err != nil {
			return fmt.Errorf("%w: upsert user %s: %v", ErrStore, data.ID, err)
		}
		log.Infof("[Identity] User %s upserted (%s)", data.ID, evt.Type)
		return nil

	case EventUserDeleted:
		data, err := parseUserData(evt.Data)
		if err != nil {
			return err
		}
		deleted, err := i.users.DeleteByExternalID(ctx, data.ID)
		if err != nil {
			return fmt.Errorf("%w: delete user %s: %v", ErrStore, data.ID, err)
		}
		if !deleted {
			log.Warnf("[Identity] Delete for unknown user %s ignored", data.ID)
			return nil
		}
		log.Infof("[Identity] User %s deleted", data.ID)
		return nil

	default:
		log.Infof("[Identity] Unhandled event type: %s", evt.Type)
		res.Ignored = true
		return nil
	}
}
