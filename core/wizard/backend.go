package wizard

import (
	"context"

	"github.com/trezcool/confradar/core/conference"
)

type (
	// Backend is the conference API the wizard saves to.
	Backend interface {
		// CreateConference creates a conference from its basic info and returns its ID.
		CreateConference(ctx context.Context, bi conference.BasicInfo) (string, error)
		UpdateBasicInfo(ctx context.Context, conferenceID string, bi conference.BasicInfo) error
		// Put* replace the full list of child entities and delete the given IDs.
		PutTickets(ctx context.Context, conferenceID string, items []conference.TicketTier, deletedIDs []string) error
		PutSessions(ctx context.Context, conferenceID string, items []conference.Session, deletedIDs []string) error
		PutPolicies(ctx context.Context, conferenceID string, items []conference.Policy, deletedIDs []string) error
		PutMedia(ctx context.Context, conferenceID string, items []conference.MediaItem, deletedIDs []string) error
		PutSponsors(ctx context.Context, conferenceID string, items []conference.Sponsor, deletedIDs []string) error
		GetConference(ctx context.Context, conferenceID string) (conference.Conference, error)
		SubmitAll(ctx context.Context, conferenceID string, changes AllChanges) (AggregateResponse, error)
	}

	// AllChanges is the payload of the edit-mode "submit all".
	AllChanges struct {
		BasicInfo  conference.BasicInfo    `json:"basic_info"`
		Tickets    []conference.TicketTier `json:"tickets"`
		Sessions   []conference.Session    `json:"sessions"`
		Policies   []conference.Policy     `json:"policies"`
		Media      []conference.MediaItem  `json:"media"`
		Sponsors   []conference.Sponsor    `json:"sponsors"`
		DeletedIDs map[EntityKind][]string `json:"deleted_ids"`
	}

	// AggregateResponse reports coarse per-area failures without saying which entities were saved.
	AggregateResponse struct {
		Success bool     `json:"success"`
		Errors  []string `json:"errors,omitempty"`
	}
)
