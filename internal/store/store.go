package store

import (
	"context"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
)

// ProfileReader is the narrow read interface the analyst and communicator
// depend on.
type ProfileReader interface {
	GetProfileByCandidate(ctx context.Context, candidateID string) (*model.Profile, error)
}

// OpportunityReader is the narrow read interface the stage detector depends on.
type OpportunityReader interface {
	GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error)
}

// Store defines the persistence interface for interactions, opportunities,
// profiles, and drafts. The orchestrator and commands depend only on this.
type Store interface {
	ProfileReader
	OpportunityReader

	// Interactions
	CreateInteraction(ctx context.Context, i *model.Interaction) error
	GetInteraction(ctx context.Context, id string) (*model.Interaction, error)
	UpdateInteraction(ctx context.Context, i *model.Interaction) error
	ListPendingInteractions(ctx context.Context) ([]model.Interaction, error)
	// ListRecruiterMessages returns the INITIAL and FOLLOW_UP interactions for
	// an opportunity in chronological order. Candidate replies are excluded.
	ListRecruiterMessages(ctx context.Context, opportunityID string) ([]model.Interaction, error)

	// Opportunities
	CreateOpportunity(ctx context.Context, o *model.Opportunity) error
	UpdateOpportunity(ctx context.Context, o *model.Opportunity) error

	// Profiles
	SaveProfile(ctx context.Context, p *model.Profile) error

	// Drafts
	SaveDraft(ctx context.Context, d *model.DraftResponse) error
	ListDrafts(ctx context.Context, opportunityID string) ([]model.DraftResponse, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
