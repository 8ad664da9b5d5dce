package wizard

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/confradar/core/conference"
)

// BackendMock is an in-memory conference API. Persisted entities get sequential IDs.
type BackendMock struct {
	mu          sync.Mutex
	seq         int
	conferences map[string]*conference.Conference

	Calls     []string            // "<method> <conference id>", in call order
	Deleted   map[string][]string // deleted IDs received, by method
	Fail      map[string]error    // forced error, by method
	Aggregate *AggregateResponse  // forced SubmitAll response
	Block     chan struct{}       // when set, Put*/Create calls wait for it or for ctx cancellation
}

func NewBackendMock() *BackendMock {
	return &BackendMock{
		conferences: make(map[string]*conference.Conference),
		Deleted:     make(map[string][]string),
		Fail:        make(map[string]error),
	}
}

// Seed stores conf as an existing conference and returns it with IDs assigned.
func (b *BackendMock) Seed(conf conference.Conference) conference.Conference {
	b.mu.Lock()
	defer b.mu.Unlock()
	if conf.ID == "" {
		conf.ID = b.nextID("conf")
	}
	conf.Tickets = assignIDs(b, conf.Tickets, func(e *conference.TicketTier) *string { return &e.ID })
	conf.Sessions = assignIDs(b, conf.Sessions, func(e *conference.Session) *string { return &e.ID })
	conf.Policies = assignIDs(b, conf.Policies, func(e *conference.Policy) *string { return &e.ID })
	conf.Media = assignIDs(b, conf.Media, func(e *conference.MediaItem) *string { return &e.ID })
	conf.Sponsors = assignIDs(b, conf.Sponsors, func(e *conference.Sponsor) *string { return &e.ID })
	c := conf
	b.conferences[conf.ID] = &c
	return conf
}

// Conference returns the stored state of a conference.
func (b *BackendMock) Conference(id string) (conference.Conference, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.conferences[id]
	if !ok {
		return conference.Conference{}, false
	}
	return *c, true
}

// CallCount returns how many calls of method were received.
func (b *BackendMock) CallCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int
	for _, call := range b.Calls {
		if len(call) >= len(method) && call[:len(method)] == method {
			n++
		}
	}
	return n
}

func (b *BackendMock) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func assignIDs[T any](b *BackendMock, items []T, id func(*T) *string) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		if p := id(&out[i]); *p == "" {
			*p = b.nextID("ent")
		}
	}
	return out
}

func (b *BackendMock) enter(ctx context.Context, method, confID string) error {
	b.mu.Lock()
	b.Calls = append(b.Calls, method+" "+confID)
	block, err := b.Block, b.Fail[method]
	b.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (b *BackendMock) get(confID string) (*conference.Conference, error) {
	c, ok := b.conferences[confID]
	if !ok {
		return nil, fmt.Errorf("conference %s not found", confID)
	}
	return c, nil
}

func (b *BackendMock) CreateConference(ctx context.Context, bi conference.BasicInfo) (string, error) {
	if err := b.enter(ctx, "CreateConference", ""); err != nil {
		return "", err
	}
	conf := b.Seed(conference.Conference{BasicInfo: bi})
	return conf.ID, nil
}

func (b *BackendMock) UpdateBasicInfo(ctx context.Context, confID string, bi conference.BasicInfo) error {
	if err := b.enter(ctx, "UpdateBasicInfo", confID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.get(confID)
	if err != nil {
		return err
	}
	c.BasicInfo = bi
	return nil
}

func (b *BackendMock) put(ctx context.Context, method, confID string, deletedIDs []string, apply func(c *conference.Conference)) error {
	if err := b.enter(ctx, method, confID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.get(confID)
	if err != nil {
		return err
	}
	b.Deleted[method] = append(b.Deleted[method], deletedIDs...)
	apply(c)
	return nil
}

func (b *BackendMock) PutTickets(ctx context.Context, confID string, items []conference.TicketTier, deletedIDs []string) error {
	return b.put(ctx, "PutTickets", confID, deletedIDs, func(c *conference.Conference) {
		c.Tickets = assignIDs(b, items, func(e *conference.TicketTier) *string { return &e.ID })
	})
}

func (b *BackendMock) PutSessions(ctx context.Context, confID string, items []conference.Session, deletedIDs []string) error {
	return b.put(ctx, "PutSessions", confID, deletedIDs, func(c *conference.Conference) {
		c.Sessions = assignIDs(b, items, func(e *conference.Session) *string { return &e.ID })
	})
}

func (b *BackendMock) PutPolicies(ctx context.Context, confID string, items []conference.Policy, deletedIDs []string) error {
	return b.put(ctx, "PutPolicies", confID, deletedIDs, func(c *conference.Conference) {
		c.Policies = assignIDs(b, items, func(e *conference.Policy) *string { return &e.ID })
	})
}

func (b *BackendMock) PutMedia(ctx context.Context, confID string, items []conference.MediaItem, deletedIDs []string) error {
	return b.put(ctx, "PutMedia", confID, deletedIDs, func(c *conference.Conference) {
		c.Media = assignIDs(b, items, func(e *conference.MediaItem) *string { return &e.ID })
	})
}

func (b *BackendMock) PutSponsors(ctx context.Context, confID string, items []conference.Sponsor, deletedIDs []string) error {
	return b.put(ctx, "PutSponsors", confID, deletedIDs, func(c *conference.Conference) {
		c.Sponsors = assignIDs(b, items, func(e *conference.Sponsor) *string { return &e.ID })
	})
}

func (b *BackendMock) GetConference(ctx context.Context, confID string) (conference.Conference, error) {
	b.mu.Lock()
	b.Calls = append(b.Calls, "GetConference "+confID)
	err := b.Fail["GetConference"]
	b.mu.Unlock()
	if err != nil {
		return conference.Conference{}, err
	}
	c, ok := b.Conference(confID)
	if !ok {
		return conference.Conference{}, fmt.Errorf("conference %s not found", confID)
	}
	return c, nil
}

func (b *BackendMock) SubmitAll(ctx context.Context, confID string, changes AllChanges) (AggregateResponse, error) {
	if err := b.enter(ctx, "SubmitAll", confID); err != nil {
		return AggregateResponse{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Aggregate != nil {
		return *b.Aggregate, nil
	}
	c, err := b.get(confID)
	if err != nil {
		return AggregateResponse{}, err
	}
	for _, ids := range changes.DeletedIDs {
		b.Deleted["SubmitAll"] = append(b.Deleted["SubmitAll"], ids...)
	}
	c.BasicInfo = changes.BasicInfo
	c.Tickets = assignIDs(b, changes.Tickets, func(e *conference.TicketTier) *string { return &e.ID })
	c.Sessions = assignIDs(b, changes.Sessions, func(e *conference.Session) *string { return &e.ID })
	c.Policies = assignIDs(b, changes.Policies, func(e *conference.Policy) *string { return &e.ID })
	c.Media = assignIDs(b, changes.Media, func(e *conference.MediaItem) *string { return &e.ID })
	c.Sponsors = assignIDs(b, changes.Sponsors, func(e *conference.Sponsor) *string { return &e.ID })
	return AggregateResponse{Success: true}, nil
}
