package coach

import (
	"context"
	"strings"
	"time"

	"sherise/internal/featureflags"
	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/observability"
	"sherise/internal/store"
)

// Fixtures is the part of the fixture catalog the coach reads.
type Fixtures interface {
	Trends(ctx context.Context) []models.Trend
	Community(ctx context.Context) []models.CommunityMember
}

// Coach runs one user's conversation with the business coach.
type Coach struct {
	store     *store.Store
	bus       *notifications.Bus
	fixtures  Fixtures
	generator Generator
	flags     *featureflags.Manager
	now       func() time.Time
}

// New creates the coach service.
func New(s *store.Store, bus *notifications.Bus, fixtures Fixtures, generator Generator, flags *featureflags.Manager) *Coach {
	return &Coach{
		store:     s,
		bus:       bus,
		fixtures:  fixtures,
		generator: generator,
		flags:     flags,
		now:       time.Now,
	}
}

func (c *Coach) profile(ctx context.Context, userID uint) models.Profile {
	p := store.Read(ctx, c.store, store.UserScope(userID), models.SliceCurrentUser, models.Profile{})
	p.Fill()
	return p
}

func (c *Coach) message(role, content string) models.CoachMessage {
	return models.CoachMessage{Role: role, Content: content, TS: c.now().UnixMilli()}
}

// Transcript returns the stored conversation, or just the greeting for a user who never wrote.
func (c *Coach) Transcript(ctx context.Context, userID uint) []models.CoachMessage {
	msgs := store.Read(ctx, c.store, store.UserScope(userID), models.SliceCoach, []models.CoachMessage(nil))
	if len(msgs) == 0 {
		return []models.CoachMessage{c.message(models.CoachRoleBot, Greeting(c.profile(ctx, userID)))}
	}
	return msgs
}

// Send appends text and the coach's reply to the transcript and returns the reply.
// Collaboration requests are answered from the community list without calling the generator.
func (c *Coach) Send(ctx context.Context, userID uint, text string) (models.CoachMessage, error) {
	if strings.TrimSpace(text) == "" {
		return models.CoachMessage{}, models.NewValidationError("Message is required")
	}

	profile := c.profile(ctx, userID)
	userMsg := c.message(models.CoachRoleUser, text)
	reply := c.message(models.CoachRoleBot, c.reply(ctx, userID, profile, text))

	scope := store.UserScope(userID)
	_, err := store.Update(ctx, c.store, scope, models.SliceCoach, []models.CoachMessage{},
		func(msgs []models.CoachMessage) ([]models.CoachMessage, error) {
			if len(msgs) == 0 {
				msgs = append(msgs, c.message(models.CoachRoleBot, Greeting(profile)))
			}
			return append(msgs, userMsg, reply), nil
		})
	if err != nil {
		return models.CoachMessage{}, err
	}

	c.bus.Publish(ctx, notifications.UserEvent(notifications.EventCoachUpdated, userID, nil))
	return reply, nil
}

func (c *Coach) reply(ctx context.Context, userID uint, profile models.Profile, text string) string {
	if IsCollaborationRequest(text) && c.flags.Enabled(featureflags.CoachPartnerSuggestions, userID) {
		observability.CoachRequests.WithLabelValues(OutcomePartners).Inc()
		return PartnerReply(c.fixtures.Community(ctx), profile.Name)
	}
	return c.generator.Generate(ctx, BuildPrompt(profile, c.fixtures.Trends(ctx), text))
}

// Reset clears the transcript.
func (c *Coach) Reset(ctx context.Context, userID uint) error {
	if err := c.store.Delete(ctx, store.UserScope(userID), models.SliceCoach); err != nil {
		return err
	}
	c.bus.Publish(ctx, notifications.UserEvent(notifications.EventCoachUpdated, userID, nil))
	return nil
}

// Suggestions returns the offline advice list for businessText, or for the
// user's own business when businessText is blank.
func (c *Coach) Suggestions(ctx context.Context, userID uint, businessText string) []string {
	if strings.TrimSpace(businessText) == "" {
		businessText = c.profile(ctx, userID).Business
	}
	return Suggestions(c.fixtures.Trends(ctx), businessText, nil)
}
