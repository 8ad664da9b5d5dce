package wizard

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/confradar/core"
	"github.com/trezcool/confradar/core/conference"
)

type (
	// NewSession contains information needed to start or open a wizard.
	NewSession struct {
		Mode         Mode            `json:"mode" validate:"required,oneof=create edit"`
		Type         conference.Type `json:"type"`
		ConferenceID string          `json:"conference_id"`
	}

	Navigation struct {
		Action string `json:"action" validate:"required,oneof=next previous goto"`
		Step   int    `json:"step"`
	}

	// Result is the outcome of a step submission.
	Result struct {
		Step         Step              `json:"step"`
		Success      bool              `json:"success"`
		ConferenceID string            `json:"conference_id,omitempty"`
		Errors       map[string]string `json:"errors,omitempty"`
		Message      string            `json:"message,omitempty"`
		Session      Snapshot          `json:"session"`
	}

	// AggregateResult is the outcome of an edit-mode "submit all".
	AggregateResult struct {
		Success  bool              `json:"success"`
		Errors   map[string]string `json:"errors,omitempty"`
		Messages []string          `json:"messages,omitempty"`
		Session  Snapshot          `json:"session"`
	}

	FieldCheck struct {
		Step  Step     `json:"step"`
		Field string   `json:"field"`
		Rules []string `json:"rules"`
		Error string   `json:"error,omitempty"`
	}

	// stepRequest is what a step submission sends upstream, copied under the session lock.
	stepRequest struct {
		step         Step
		conferenceID string
		create       bool
		draft        Draft
		deleted      []string
		revision     int
	}
)

// Service owns the live wizard sessions and orchestrates their submission to the conference API.
type Service struct {
	backend   Backend
	repo      Repository
	validator *conference.Validator
	mailer    core.EmailService
	logger    core.Logger
	appName   string
	timeout   time.Duration
	idle      time.Duration

	NowFunc func() time.Time // mockable
	NewID   func() string    // mockable

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(
	conf *core.Config,
	backend Backend,
	repo Repository,
	validator *conference.Validator,
	mailer core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		backend:   backend,
		repo:      repo,
		validator: validator,
		mailer:    mailer,
		logger:    logger,
		appName:   conf.AppName,
		timeout:   conf.Upstream.Timeout,
		idle:      conf.Wizard.IdleTimeout,
		NowFunc:   func() time.Time { return time.Now().UTC() },
		NewID:     func() string { return uuid.New().String() },
		sessions:  make(map[string]*Session),
	}
}

// Start opens a create-mode wizard for a new conference of the given type.
func (svc *Service) Start(ctx context.Context, typ conference.Type) (Snapshot, error) {
	if typ != conference.TypePaid && typ != conference.TypeFree {
		return Snapshot{}, core.NewValidationError(nil, core.FieldError{Field: "type", Error: "must be one of [paid free]"})
	}
	s := newSession(svc.NewID(), core.PersonFrom(ctx).ID, ModeCreate, typ, svc.NowFunc())
	return svc.register(ctx, s), nil
}

// Open opens an edit-mode wizard hydrated from the conference API.
func (svc *Service) Open(ctx context.Context, conferenceID string) (Snapshot, error) {
	conferenceID = core.CleanString(conferenceID)
	if conferenceID == "" {
		return Snapshot{}, core.NewValidationError(nil, core.FieldError{Field: "conference_id", Error: "required"})
	}
	conf, err := svc.backend.GetConference(ctx, conferenceID)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "fetching conference")
	}

	typ := conf.BasicInfo.Type
	if typ != conference.TypeFree {
		typ = conference.TypePaid
	}
	s := newSession(svc.NewID(), core.PersonFrom(ctx).ID, ModeEdit, typ, svc.NowFunc())
	s.ConferenceID = conferenceID
	s.hydrate(conf)
	return svc.register(ctx, s), nil
}

// hydrate populates every step from the server structure; each step is completed since it exists upstream.
func (s *Session) hydrate(conf conference.Conference) {
	s.Draft = DraftFromConference(conf)
	s.Draft.BasicInfo.Type = s.Type
	for pos := 1; pos <= s.nav.MaxStep(); pos++ {
		s.nav.MarkCompleted(pos)
	}
}

func (svc *Service) register(ctx context.Context, s *Session) Snapshot {
	svc.mu.Lock()
	svc.sessions[s.ID] = s
	svc.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return svc.persist(ctx, s)
}

// load returns the live session, restoring it from the repository when needed.
func (svc *Service) load(ctx context.Context, id string) (*Session, error) {
	svc.mu.RLock()
	s, ok := svc.sessions[id]
	svc.mu.RUnlock()
	if ok {
		return s, nil
	}

	snap, err := svc.repo.Get(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrSessionNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "loading session")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if s, ok = svc.sessions[id]; ok { // restored concurrently
		return s, nil
	}
	s = restoreSession(snap)
	svc.sessions[id] = s
	return s, nil
}

// lock returns the locked live session; the caller must unlock it.
func (svc *Service) lock(ctx context.Context, id string) (*Session, error) {
	s, err := svc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// persist saves the snapshot of a locked session. Failures are logged, the live session stays authoritative.
func (svc *Service) persist(ctx context.Context, s *Session) Snapshot {
	snap := s.snapshot()
	if err := svc.repo.Save(context.WithoutCancel(ctx), snap); err != nil {
		svc.logger.Error(fmt.Sprintf("saving wizard session %s: %v", s.ID, err), err, core.PersonFrom(ctx))
	}
	return snap
}

// callContext derives an upstream call context from the session lifetime, so closing the session aborts it.
func (svc *Service) callContext(ctx context.Context, s *Session) (context.Context, context.CancelFunc) {
	callCtx := core.WithAuthToken(s.ctx, core.AuthToken(ctx))
	callCtx = core.WithPerson(callCtx, core.PersonFrom(ctx))
	if svc.timeout > 0 {
		return context.WithTimeout(callCtx, svc.timeout)
	}
	return context.WithCancel(callCtx)
}

func (svc *Service) Get(ctx context.Context, id string) (Snapshot, error) {
	s, err := svc.lock(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

func (svc *Service) List(ctx context.Context) ([]Snapshot, error) {
	snaps, err := svc.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing sessions")
	}
	return snaps, nil
}

// edit applies fn to the form of step and re-checks the fields already flagged on that step.
func (svc *Service) edit(ctx context.Context, id string, step Step, fn func(s *Session) error) (Snapshot, error) {
	s, err := svc.lock(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	defer s.mu.Unlock()

	if _, ok := s.nav.Position(step); !ok {
		return Snapshot{}, ErrInvalidStep
	}
	if err = fn(s); err != nil {
		return Snapshot{}, err
	}
	s.touch(step, svc.NowFunc())
	svc.refreshErrors(s, step)
	return svc.persist(ctx, s), nil
}

// refreshErrors re-validates the fields already flagged on step; newly failing fields are not reported
// until they are checked or submitted.
func (svc *Service) refreshErrors(s *Session, step Step) {
	if len(s.errors[step]) == 0 {
		return
	}
	var current map[string]string
	if err := svc.validator.Validate(s.Draft.record(step)); err != nil {
		if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
			current = vErr.FieldMap()
		}
	}
	fldErrs := make(map[string]string, len(s.errors[step]))
	for path := range s.errors[step] {
		if msg, ok := current[path]; ok {
			fldErrs[path] = msg
		}
	}
	s.setErrors(step, fldErrs)
}

func (svc *Service) UpdateBasicInfo(ctx context.Context, id string, bi conference.BasicInfo) (Snapshot, error) {
	return svc.edit(ctx, id, StepBasicInfo, func(s *Session) error {
		bi.Type = s.Type // the step sequence is fixed for the session lifetime
		s.Draft.BasicInfo = bi
		return nil
	})
}

func (svc *Service) SetTickets(ctx context.Context, id string, items []conference.TicketTier) (Snapshot, error) {
	return svc.edit(ctx, id, StepTickets, func(s *Session) error {
		if err := s.replaceEntities(KindTickets, idsOf(items, func(e conference.TicketTier) string { return e.ID })); err != nil {
			return err
		}
		s.Draft.Tickets = cloneSlice(items)
		return nil
	})
}

func (svc *Service) SetSessions(ctx context.Context, id string, items []conference.Session) (Snapshot, error) {
	return svc.edit(ctx, id, StepSessions, func(s *Session) error {
		if err := s.replaceEntities(KindSessions, idsOf(items, func(e conference.Session) string { return e.ID })); err != nil {
			return err
		}
		s.Draft.Sessions = cloneSlice(items)
		return nil
	})
}

func (svc *Service) SetPolicies(ctx context.Context, id string, items []conference.Policy) (Snapshot, error) {
	return svc.edit(ctx, id, StepPolicies, func(s *Session) error {
		if err := s.replaceEntities(KindPolicies, idsOf(items, func(e conference.Policy) string { return e.ID })); err != nil {
			return err
		}
		s.Draft.Policies = cloneSlice(items)
		return nil
	})
}

func (svc *Service) SetMedia(ctx context.Context, id string, items []conference.MediaItem) (Snapshot, error) {
	return svc.edit(ctx, id, StepMedia, func(s *Session) error {
		if err := s.replaceEntities(KindMedia, idsOf(items, func(e conference.MediaItem) string { return e.ID })); err != nil {
			return err
		}
		s.Draft.Media = cloneSlice(items)
		return nil
	})
}

func (svc *Service) SetSponsors(ctx context.Context, id string, items []conference.Sponsor) (Snapshot, error) {
	return svc.edit(ctx, id, StepSponsors, func(s *Session) error {
		if err := s.replaceEntities(KindSponsors, idsOf(items, func(e conference.Sponsor) string { return e.ID })); err != nil {
			return err
		}
		s.Draft.Sponsors = cloneSlice(items)
		return nil
	})
}

func idsOf[T any](items []T, id func(T) string) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = id(item)
	}
	return ids
}

// replaceEntities checks the IDs of a replacement list against the current one.
// Only known server IDs may appear (once each); persisted entities missing from the new list are tracked as deleted.
func (s *Session) replaceEntities(kind EntityKind, newIDs []string) error {
	known := make(map[string]bool)
	for _, id := range s.Draft.entityIDs(kind) {
		if id != "" {
			known[id] = true
		}
	}

	var flds []core.FieldError
	kept := make(map[string]bool, len(newIDs))
	for i, id := range newIDs {
		if id == "" {
			continue
		}
		if !known[id] || kept[id] {
			flds = append(flds, core.FieldError{Field: fmt.Sprintf("%s[%d].id", kind, i), Error: "unknown or duplicated entity"})
			continue
		}
		kept[id] = true
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}

	for _, id := range s.Draft.entityIDs(kind) {
		if id != "" && !kept[id] {
			s.ledger.TrackDeleted(kind, id)
		}
	}
	return nil
}

func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

// RemoveEntity drops the entity at index from its step's list. A persisted entity is tracked for deletion.
func (svc *Service) RemoveEntity(ctx context.Context, id string, kind EntityKind, index int) (Snapshot, error) {
	return svc.edit(ctx, id, kind.Step(), func(s *Session) error {
		ids := s.Draft.entityIDs(kind)
		if index < 0 || index >= len(ids) {
			return ErrEntityNotFound
		}
		switch kind {
		case KindTickets:
			s.Draft.Tickets = removeAt(s.Draft.Tickets, index)
		case KindSessions:
			s.Draft.Sessions = removeAt(s.Draft.Sessions, index)
		case KindPolicies:
			s.Draft.Policies = removeAt(s.Draft.Policies, index)
		case KindMedia:
			s.Draft.Media = removeAt(s.Draft.Media, index)
		case KindSponsors:
			s.Draft.Sponsors = removeAt(s.Draft.Sponsors, index)
		default:
			return ErrInvalidStep
		}
		s.ledger.TrackDeleted(kind, ids[index])
		return nil
	})
}

// CheckField validates a single field of a step (blur/change), without cross-field rules.
func (svc *Service) CheckField(ctx context.Context, id string, step Step, field string) (FieldCheck, error) {
	s, err := svc.lock(ctx, id)
	if err != nil {
		return FieldCheck{}, err
	}
	defer s.mu.Unlock()

	if _, ok := s.nav.Position(step); !ok {
		return FieldCheck{}, ErrInvalidStep
	}
	record := s.Draft.record(step)
	rules, err := conference.Rules(record, field)
	if err != nil {
		return FieldCheck{}, core.NewValidationError(err, core.FieldError{Field: field, Error: "unknown field"})
	}

	msg := svc.validator.CheckField(record, field)
	fldErrs := make(map[string]string, len(s.errors[step])+1)
	for k, v := range s.errors[step] {
		fldErrs[k] = v
	}
	if msg == "" {
		delete(fldErrs, field)
	} else {
		fldErrs[field] = msg
	}
	s.setErrors(step, fldErrs)
	svc.persist(ctx, s)

	return FieldCheck{Step: step, Field: field, Rules: rules, Error: msg}, nil
}

func (svc *Service) Navigate(ctx context.Context, id string, nav Navigation) (Snapshot, error) {
	s, err := svc.lock(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	defer s.mu.Unlock()

	switch nav.Action {
	case "next":
		s.nav.Next()
	case "previous":
		s.nav.Previous()
	case "goto":
		if err = s.nav.GoTo(nav.Step); err != nil {
			return Snapshot{}, err
		}
	default:
		return Snapshot{}, core.NewValidationError(nil, core.FieldError{Field: "action", Error: "must be one of [next previous goto]"})
	}
	s.UpdatedAt = svc.NowFunc()
	return svc.persist(ctx, s), nil
}

// SubmitStep validates a step and saves it upstream. Invalid steps never reach the network.
// On success the step is completed and the wizard advances; on failure the local state is kept for retry.
func (svc *Service) SubmitStep(ctx context.Context, id string, step Step) (Result, error) {
	s, err := svc.lock(ctx, id)
	if err != nil {
		return Result{}, err
	}
	pos, ok := s.nav.Position(step)
	if !ok {
		s.mu.Unlock()
		return Result{Step: step}, ErrInvalidStep
	}
	prev := s.state(step)
	if prev == StateSubmitting {
		s.mu.Unlock()
		return Result{Step: step}, ErrSubmissionInFlight
	}

	s.states[step] = StateValidating
	if err = svc.validator.Validate(s.Draft.record(step)); err != nil {
		s.states[step] = StateInvalid
		var fldErrs map[string]string
		if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
			fldErrs = vErr.FieldMap()
		}
		s.setErrors(step, fldErrs)
		s.UpdatedAt = svc.NowFunc()
		snap := svc.persist(ctx, s)
		s.mu.Unlock()
		return Result{Step: step, Errors: fldErrs, Session: snap}, err
	}
	s.setErrors(step, nil)
	if step != StepBasicInfo && s.ConferenceID == "" {
		s.states[step] = prev
		s.mu.Unlock()
		return Result{Step: step}, ErrNoConference
	}

	req := stepRequest{
		step:         step,
		conferenceID: s.ConferenceID,
		create:       s.ConferenceID == "",
		draft:        s.Draft.clone(),
		deleted:      s.ledger.Pending(step.Kind()),
		revision:     s.revisions[step],
	}
	s.states[step] = StateSubmitting
	s.UpdatedAt = svc.NowFunc()
	gen := s.generation
	callCtx, cancel := svc.callContext(ctx, s)
	svc.persist(ctx, s)
	s.mu.Unlock()

	confID, sendErr := svc.send(callCtx, req)
	var fresh *conference.Conference
	if sendErr == nil && s.Mode == ModeEdit {
		// reconcile server IDs of newly created entities
		if conf, err := svc.backend.GetConference(callCtx, confID); err == nil {
			fresh = &conf
		} else {
			svc.logger.Warn(fmt.Sprintf("refetching conference %s: %v", confID, err), err, core.PersonFrom(ctx))
		}
	}
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != gen {
		return Result{Step: step}, ErrSessionNotFound
	}
	s.UpdatedAt = svc.NowFunc()

	if sendErr != nil {
		s.states[step] = StateFailed
		s.notification = notificationFor(step, sendErr)
		snap := svc.persist(ctx, s)
		return Result{Step: step, Message: s.notification, Session: snap}, errors.Wrapf(sendErr, "submitting %s", step)
	}

	if s.ConferenceID == "" {
		s.ConferenceID = confID
	}
	s.ledger.Acknowledge(step.Kind(), req.deleted)
	s.nav.MarkCompleted(pos)
	s.states[step] = StateSucceeded
	s.notification = ""
	if fresh != nil && s.revisions[step] == req.revision {
		s.Draft.take(step, DraftFromConference(*fresh))
	}
	if s.nav.Current() == pos {
		s.nav.Next()
	}
	snap := svc.persist(ctx, s)
	return Result{Step: step, Success: true, ConferenceID: s.ConferenceID, Session: snap}, nil
}

// send issues the create/update request of a step and returns the conference ID.
func (svc *Service) send(ctx context.Context, req stepRequest) (string, error) {
	d, confID := req.draft, req.conferenceID
	switch req.step {
	case StepBasicInfo:
		if !req.create {
			return confID, svc.backend.UpdateBasicInfo(ctx, confID, d.BasicInfo)
		}
		id, err := svc.backend.CreateConference(ctx, d.BasicInfo)
		if err != nil {
			return "", err
		}
		if id == "" {
			return "", core.NewUpstreamError(http.StatusBadGateway, "no conference id returned")
		}
		return id, nil
	case StepTickets:
		return confID, svc.backend.PutTickets(ctx, confID, d.Tickets, req.deleted)
	case StepSessions:
		return confID, svc.backend.PutSessions(ctx, confID, d.Sessions, req.deleted)
	case StepPolicies:
		return confID, svc.backend.PutPolicies(ctx, confID, d.Policies, req.deleted)
	case StepMedia:
		return confID, svc.backend.PutMedia(ctx, confID, d.Media, req.deleted)
	case StepSponsors:
		return confID, svc.backend.PutSponsors(ctx, confID, d.Sponsors, req.deleted)
	}
	return "", ErrInvalidStep
}

func notificationFor(step Step, err error) string {
	switch origErr := errors.Cause(err).(type) {
	case *core.UpstreamError:
		return fmt.Sprintf("Saving %s failed: %s", step, origErr.Message)
	case *core.AggregateError:
		return "Saving the conference failed: " + origErr.Error()
	}
	if errors.Cause(err) == context.DeadlineExceeded {
		return fmt.Sprintf("Saving %s timed out, please retry", step)
	}
	return fmt.Sprintf("Saving %s failed, please retry", step)
}

// SubmitAll saves every step of an edit-mode wizard in one request.
// A partial failure is reported as a list of messages; the deletion ledger is kept for the retry.
func (svc *Service) SubmitAll(ctx context.Context, id string) (AggregateResult, error) {
	s, err := svc.lock(ctx, id)
	if err != nil {
		return AggregateResult{}, err
	}
	if s.Mode != ModeEdit {
		s.mu.Unlock()
		return AggregateResult{}, ErrModeMismatch
	}
	if s.anySubmitting() {
		s.mu.Unlock()
		return AggregateResult{}, ErrSubmissionInFlight
	}

	steps := s.nav.Steps()
	allErrs := make(map[string]string)
	var flds []core.FieldError
	for _, step := range steps {
		vErr := svc.validator.Validate(s.Draft.record(step))
		if vErr == nil {
			s.setErrors(step, nil)
			continue
		}
		fErr, ok := errors.Cause(vErr).(*core.ValidationError)
		if !ok {
			s.mu.Unlock()
			return AggregateResult{}, errors.Wrapf(vErr, "validating %s", step)
		}
		s.states[step] = StateInvalid
		s.setErrors(step, fErr.FieldMap())
		for k, v := range fErr.FieldMap() {
			allErrs[k] = v
		}
		flds = append(flds, fErr.Fields...)
	}
	if len(flds) > 0 {
		s.UpdatedAt = svc.NowFunc()
		snap := svc.persist(ctx, s)
		s.mu.Unlock()
		return AggregateResult{Errors: allErrs, Session: snap}, core.NewValidationError(nil, flds...)
	}

	d := s.Draft.clone()
	changes := AllChanges{
		BasicInfo:  d.BasicInfo,
		Tickets:    d.Tickets,
		Sessions:   d.Sessions,
		Policies:   d.Policies,
		Media:      d.Media,
		Sponsors:   d.Sponsors,
		DeletedIDs: s.ledger.All(),
	}
	revisions := make(map[Step]int, len(steps))
	for _, step := range steps {
		revisions[step] = s.revisions[step]
		s.states[step] = StateSubmitting
	}
	s.UpdatedAt = svc.NowFunc()
	confID := s.ConferenceID
	gen := s.generation
	callCtx, cancel := svc.callContext(ctx, s)
	svc.persist(ctx, s)
	s.mu.Unlock()

	resp, sendErr := svc.backend.SubmitAll(callCtx, confID, changes)
	if sendErr == nil && !resp.Success {
		msgs := resp.Errors
		if len(msgs) == 0 {
			msgs = []string{"the conference could not be saved"}
		}
		sendErr = &core.AggregateError{Messages: msgs}
	}
	var fresh *conference.Conference
	if sendErr == nil {
		if conf, err := svc.backend.GetConference(callCtx, confID); err == nil {
			fresh = &conf
		} else {
			svc.logger.Warn(fmt.Sprintf("refetching conference %s: %v", confID, err), err, core.PersonFrom(ctx))
		}
	}
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != gen {
		return AggregateResult{}, ErrSessionNotFound
	}
	s.UpdatedAt = svc.NowFunc()

	if sendErr != nil {
		for _, step := range steps {
			s.states[step] = StateFailed
		}
		s.notification = notificationFor(StepBasicInfo, sendErr)
		snap := svc.persist(ctx, s)
		msgs := []string{s.notification}
		if aggErr, ok := errors.Cause(sendErr).(*core.AggregateError); ok {
			msgs = aggErr.Messages
		}
		return AggregateResult{Messages: msgs, Session: snap}, errors.Wrap(sendErr, "submitting all steps")
	}

	for kind, ids := range changes.DeletedIDs {
		s.ledger.Acknowledge(kind, ids)
	}
	var full Draft
	if fresh != nil {
		full = DraftFromConference(*fresh)
	}
	for i, step := range steps {
		s.nav.MarkCompleted(i + 1)
		s.states[step] = StateSucceeded
		if fresh != nil && s.revisions[step] == revisions[step] {
			s.Draft.take(step, full)
		}
	}
	s.notification = ""
	snap := svc.persist(ctx, s)
	return AggregateResult{Success: true, Session: snap}, nil
}

// Close tears a session down: in-flight calls are aborted, navigation and deletion tracking are reset
// and the draft is forgotten.
func (svc *Service) Close(ctx context.Context, id string) error {
	s, err := svc.load(ctx, id)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	delete(svc.sessions, id)
	svc.mu.Unlock()

	s.mu.Lock()
	s.teardown()
	s.mu.Unlock()

	if err = svc.repo.Delete(ctx, id); err != nil && errors.Cause(err) != ErrSessionNotFound {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}

func (s *Session) teardown() {
	s.closed = true
	s.generation++
	s.cancel()
	s.nav.Reset()
	s.ledger.Reset()
	s.states = make(map[Step]StepState)
	s.errors = make(map[Step]map[string]string)
	s.notification = ""
}

// Complete finishes a create-mode wizard whose required steps are all completed:
// a receipt is mailed to the conference contact and the session is closed.
func (svc *Service) Complete(ctx context.Context, id string) (Snapshot, error) {
	s, err := svc.lock(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	if s.Mode != ModeCreate {
		s.mu.Unlock()
		return Snapshot{}, ErrModeMismatch
	}
	if s.anySubmitting() {
		s.mu.Unlock()
		return Snapshot{}, ErrSubmissionInFlight
	}
	if !s.nav.RequiredCompleted() {
		s.mu.Unlock()
		return Snapshot{}, ErrIncomplete
	}
	snap := s.snapshot()
	s.mu.Unlock()

	svc.sendReceipt(ctx, snap)
	if err = svc.Close(ctx, id); err != nil && err != ErrSessionNotFound {
		return snap, err
	}
	return snap, nil
}

// Purge closes the sessions idle for longer than the configured idle timeout and returns how many were dropped.
func (svc *Service) Purge(ctx context.Context) (int, error) {
	before := svc.NowFunc().Add(-svc.idle)

	svc.mu.RLock()
	live := make([]*Session, 0, len(svc.sessions))
	for _, s := range svc.sessions {
		live = append(live, s)
	}
	svc.mu.RUnlock()

	var count int
	for _, s := range live {
		s.mu.Lock()
		idle := s.UpdatedAt.Before(before) && !s.anySubmitting()
		s.mu.Unlock()
		if !idle {
			continue
		}
		if err := svc.Close(ctx, s.ID); err != nil {
			if err == ErrSessionNotFound {
				continue
			}
			return count, errors.Wrapf(err, "closing session %s", s.ID)
		}
		count++
	}

	n, err := svc.repo.DeleteIdle(ctx, before)
	if err != nil {
		return count, errors.Wrap(err, "deleting idle sessions")
	}
	return count + n, nil
}
