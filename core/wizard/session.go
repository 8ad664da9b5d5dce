package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/confradar/core/conference"
)

// Draft holds the local form state of every step.
// An entity with an empty ID was added locally; one with an ID is persisted upstream.
type Draft struct {
	BasicInfo conference.BasicInfo    `json:"basic_info"`
	Tickets   []conference.TicketTier `json:"tickets"`
	Sessions  []conference.Session    `json:"sessions"`
	Policies  []conference.Policy     `json:"policies"`
	Media     []conference.MediaItem  `json:"media"`
	Sponsors  []conference.Sponsor    `json:"sponsors"`
}

// DraftFromConference populates every step's form from the conference API structure.
func DraftFromConference(c conference.Conference) Draft {
	d := Draft{
		BasicInfo: c.BasicInfo,
		Tickets:   c.Tickets,
		Sessions:  c.Sessions,
		Policies:  c.Policies,
		Media:     c.Media,
		Sponsors:  c.Sponsors,
	}
	return d.clone()
}

func cloneSlice[T any](src []T) []T {
	dst := make([]T, len(src))
	copy(dst, src)
	return dst
}

// clone copies the entity lists; nil lists become empty ones so snapshots serialize as [].
func (d Draft) clone() Draft {
	return Draft{
		BasicInfo: d.BasicInfo,
		Tickets:   cloneSlice(d.Tickets),
		Sessions:  cloneSlice(d.Sessions),
		Policies:  cloneSlice(d.Policies),
		Media:     cloneSlice(d.Media),
		Sponsors:  cloneSlice(d.Sponsors),
	}
}

// record returns the validation record of step.
func (d Draft) record(step Step) interface{} {
	switch step {
	case StepTickets:
		return conference.TicketsForm{Basic: d.BasicInfo, Tickets: d.Tickets}
	case StepSessions:
		return conference.SessionsForm{Basic: d.BasicInfo, Sessions: d.Sessions}
	case StepPolicies:
		return conference.PoliciesForm{Policies: d.Policies}
	case StepMedia:
		return conference.MediaForm{Media: d.Media}
	case StepSponsors:
		return conference.SponsorsForm{Sponsors: d.Sponsors}
	default:
		return d.BasicInfo
	}
}

// entityIDs returns the IDs of the entities of kind, in order.
func (d Draft) entityIDs(kind EntityKind) []string {
	var ids []string
	switch kind {
	case KindTickets:
		for _, e := range d.Tickets {
			ids = append(ids, e.ID)
		}
	case KindSessions:
		for _, e := range d.Sessions {
			ids = append(ids, e.ID)
		}
	case KindPolicies:
		for _, e := range d.Policies {
			ids = append(ids, e.ID)
		}
	case KindMedia:
		for _, e := range d.Media {
			ids = append(ids, e.ID)
		}
	case KindSponsors:
		for _, e := range d.Sponsors {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// take copies the form of step from src. The conference type is kept: the step sequence is fixed
// for the session lifetime.
func (d *Draft) take(step Step, src Draft) {
	switch step {
	case StepBasicInfo:
		typ := d.BasicInfo.Type
		d.BasicInfo = src.BasicInfo
		d.BasicInfo.Type = typ
	case StepTickets:
		d.Tickets = cloneSlice(src.Tickets)
	case StepSessions:
		d.Sessions = cloneSlice(src.Sessions)
	case StepPolicies:
		d.Policies = cloneSlice(src.Policies)
	case StepMedia:
		d.Media = cloneSlice(src.Media)
	case StepSponsors:
		d.Sponsors = cloneSlice(src.Sponsors)
	}
}

// Session is an in-progress wizard draft. It is owned by the Service and guarded by mu.
type Session struct {
	ID           string
	Owner        string
	Mode         Mode
	Type         conference.Type
	ConferenceID string // set once, by the first successful basic info submission in create mode
	Draft        Draft
	CreatedAt    time.Time
	UpdatedAt    time.Time

	nav          *Navigator
	ledger       *DeletionLedger
	states       map[Step]StepState
	errors       map[Step]map[string]string
	revisions    map[Step]int // bumped on every local change of a step's form
	notification string

	mu         sync.Mutex
	closed     bool
	generation int
	ctx        context.Context // cancelled on Close; in-flight calls derive from it
	cancel     context.CancelFunc
}

func newSession(id, owner string, mode Mode, typ conference.Type, now time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        id,
		Owner:     owner,
		Mode:      mode,
		Type:      typ,
		CreatedAt: now,
		UpdatedAt: now,
		nav:       NewNavigator(StepsFor(typ), mode == ModeEdit),
		ledger:    NewDeletionLedger(),
		states:    make(map[Step]StepState),
		errors:    make(map[Step]map[string]string),
		revisions: make(map[Step]int),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.Draft = Draft{}.clone()
	s.Draft.BasicInfo.Type = typ
	return s
}

func (s *Session) state(step Step) StepState {
	if st, ok := s.states[step]; ok {
		return st
	}
	return StateUntouched
}

func (s *Session) anySubmitting() bool {
	for _, st := range s.states {
		if st == StateSubmitting {
			return true
		}
	}
	return false
}

func (s *Session) setErrors(step Step, fldErrs map[string]string) {
	if len(fldErrs) == 0 {
		delete(s.errors, step)
		return
	}
	s.errors[step] = fldErrs
}

func (s *Session) touch(step Step, now time.Time) {
	s.revisions[step]++
	s.UpdatedAt = now
}

// StepView describes one step of the sequence.
type StepView struct {
	Position  int       `json:"position"`
	Step      Step      `json:"step"`
	Optional  bool      `json:"optional"`
	State     StepState `json:"state"`
	Completed bool      `json:"completed"`
}

// Snapshot is the serializable view of a Session, served to clients and persisted by the Repository.
type Snapshot struct {
	ID             string                     `json:"id"`
	Owner          string                     `json:"owner,omitempty"`
	Mode           Mode                       `json:"mode"`
	Type           conference.Type            `json:"type"`
	ConferenceID   string                     `json:"conference_id,omitempty"`
	CurrentStep    int                        `json:"current_step"`
	MaxStep        int                        `json:"max_step"`
	CompletedSteps []int                      `json:"completed_steps"`
	Steps          []StepView                 `json:"steps"`
	Draft          Draft                      `json:"draft"`
	Deletions      map[EntityKind][]string    `json:"deletions"`
	Errors         map[Step]map[string]string `json:"errors"`
	Notification   string                     `json:"notification,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

func (s *Session) snapshot() Snapshot {
	steps := make([]StepView, 0, s.nav.MaxStep())
	for i, step := range s.nav.Steps() {
		steps = append(steps, StepView{
			Position:  i + 1,
			Step:      step,
			Optional:  step.Optional(),
			State:     s.state(step),
			Completed: s.nav.IsCompleted(i + 1),
		})
	}
	errs := make(map[Step]map[string]string, len(s.errors))
	for step, fldErrs := range s.errors {
		cp := make(map[string]string, len(fldErrs))
		for k, v := range fldErrs {
			cp[k] = v
		}
		errs[step] = cp
	}
	return Snapshot{
		ID:             s.ID,
		Owner:          s.Owner,
		Mode:           s.Mode,
		Type:           s.Type,
		ConferenceID:   s.ConferenceID,
		CurrentStep:    s.nav.Current(),
		MaxStep:        s.nav.MaxStep(),
		CompletedSteps: s.nav.Completed(),
		Steps:          steps,
		Draft:          s.Draft.clone(),
		Deletions:      s.ledger.All(),
		Errors:         errs,
		Notification:   s.notification,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// restoreSession rebuilds a live Session from a persisted snapshot.
// Steps caught mid-flight are restored as failed: their outcome is unknown.
func restoreSession(snap Snapshot) *Session {
	s := newSession(snap.ID, snap.Owner, snap.Mode, snap.Type, snap.CreatedAt)
	s.ConferenceID = snap.ConferenceID
	s.Draft = snap.Draft.clone()
	s.UpdatedAt = snap.UpdatedAt
	s.notification = snap.Notification
	for _, pos := range snap.CompletedSteps {
		s.nav.MarkCompleted(pos)
	}
	if snap.CurrentStep >= 1 && snap.CurrentStep <= s.nav.MaxStep() {
		s.nav.current = snap.CurrentStep
	}
	for _, view := range snap.Steps {
		st := view.State
		if st == StateSubmitting || st == StateValidating {
			st = StateFailed
		}
		if st != StateUntouched {
			s.states[view.Step] = st
		}
	}
	for kind, ids := range snap.Deletions {
		for _, id := range ids {
			s.ledger.TrackDeleted(kind, id)
		}
	}
	for step, fldErrs := range snap.Errors {
		s.setErrors(step, fldErrs)
	}
	return s
}
