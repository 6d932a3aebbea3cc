package broadcaster

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultLookupTimeout = 3 * time.Second

// RecipientSelector decides which identities hear about a presence edge.
type RecipientSelector interface {
	RecipientsFor(ctx context.Context, transition Transition) ([]string, error)
}

// PresenceObserver is told about every presence edge, e.g. to mirror presence
// into a shared store.
type PresenceObserver interface {
	ObservePresence(ctx context.Context, transition Transition) error
}

type SocialGraph interface {
	GetSocialGraph(ctx context.Context, userId string) ([]string, error)
}

type PresenceBroadcaster struct {
	logger    *zap.Logger
	registry  Registry
	sender    Sender
	selector  RecipientSelector
	observers []PresenceObserver

	lookupTimeout time.Duration
}

func NewPresenceBroadcaster(
	logger *zap.Logger,
	registry Registry,
	sender Sender,
	selector RecipientSelector,
	observers ...PresenceObserver,
) *PresenceBroadcaster {
	return &PresenceBroadcaster{
		logger:        logger,
		registry:      registry,
		sender:        sender,
		selector:      selector,
		observers:     observers,
		lookupTimeout: DefaultLookupTimeout,
	}
}

// Run announces registry transitions until ctx is cancelled.
func (b *PresenceBroadcaster) Run(ctx context.Context) error {
	transitions := b.registry.Transitions()

	for {
		select {
		case <-ctx.Done():
			return nil
		case transition := <-transitions:
			b.Announce(ctx, transition)
		}
	}
}

func (b *PresenceBroadcaster) Announce(ctx context.Context, transition Transition) {
	lookupCtx, cancel := context.WithTimeout(ctx, b.lookupTimeout)
	defer cancel()

	for _, observer := range b.observers {
		if err := observer.ObservePresence(lookupCtx, transition); err != nil {
			b.logger.Warn("presence observer failed",
				zap.String("userId", transition.UserId),
				zap.String("status", string(transition.Status)),
				zap.Error(err))
		}
	}

	recipients, err := b.selector.RecipientsFor(lookupCtx, transition)
	if err != nil {
		b.logger.Warn("failed to select presence recipients, dropping event",
			zap.String("userId", transition.UserId),
			zap.String("status", string(transition.Status)),
			zap.Error(err))

		return
	}

	message := NewUserStatusMessage(transition.UserId, transition.Status, transition.Timestamp)

	delivered := 0
	for _, recipient := range recipients {
		if recipient == transition.UserId {
			continue
		}

		delivered += b.sender.Send(recipient, message)
	}

	b.logger.Debug("presence announced",
		zap.String("userId", transition.UserId),
		zap.String("status", string(transition.Status)),
		zap.Int("recipients", len(recipients)),
		zap.Int("delivered", delivered))
}

// AllOnlineSelector fans presence out to every online identity.
type AllOnlineSelector struct {
	registry Registry
}

func NewAllOnlineSelector(registry Registry) *AllOnlineSelector {
	return &AllOnlineSelector{
		registry,
	}
}

func (s *AllOnlineSelector) RecipientsFor(_ context.Context, _ Transition) ([]string, error) {
	return s.registry.OnlineUserIds(), nil
}

// SocialGraphSelector restricts presence to the identity's followers and
// friends that are currently online.
type SocialGraphSelector struct {
	registry    Registry
	socialGraph SocialGraph
}

func NewSocialGraphSelector(registry Registry, socialGraph SocialGraph) *SocialGraphSelector {
	return &SocialGraphSelector{
		registry,
		socialGraph,
	}
}

func (s *SocialGraphSelector) RecipientsFor(ctx context.Context, transition Transition) ([]string, error) {
	related, err := s.socialGraph.GetSocialGraph(ctx, transition.UserId)
	if err != nil {
		return nil, err
	}

	recipients := make([]string, 0, len(related))
	for _, userId := range related {
		if s.registry.IsOnline(userId) {
			recipients = append(recipients, userId)
		}
	}

	return recipients, nil
}
