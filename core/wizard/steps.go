package wizard

import "github.com/trezcool/confradar/core/conference"

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Step identifies the form rendered by one screen of the wizard.
type Step string

const (
	StepBasicInfo Step = "basic-info"
	StepTickets   Step = "tickets"
	StepSessions  Step = "sessions"
	StepPolicies  Step = "policies"
	StepMedia     Step = "media"
	StepSponsors  Step = "sponsors"
)

var (
	paidSteps = []Step{StepBasicInfo, StepTickets, StepSessions, StepPolicies, StepMedia, StepSponsors}
	freeSteps = []Step{StepBasicInfo, StepSessions, StepPolicies, StepMedia, StepSponsors}
)

// StepsFor returns the step sequence of a conference type.
func StepsFor(typ conference.Type) []Step {
	src := paidSteps
	if typ == conference.TypeFree {
		src = freeSteps
	}
	steps := make([]Step, len(src))
	copy(steps, src)
	return steps
}

func ParseStep(s string) (Step, error) {
	switch step := Step(s); step {
	case StepBasicInfo, StepTickets, StepSessions, StepPolicies, StepMedia, StepSponsors:
		return step, nil
	}
	return "", ErrInvalidStep
}

// Optional steps may be skipped when jumping forward.
func (s Step) Optional() bool {
	return s == StepPolicies || s == StepMedia || s == StepSponsors
}

// Kind returns the entity kind edited by the step; "" for basic info.
func (s Step) Kind() EntityKind {
	if s == StepBasicInfo {
		return ""
	}
	return EntityKind(s)
}

// StepState is the submission state of a single step:
// untouched -> validating -> {invalid | submitting -> {failed | succeeded}}
type StepState string

const (
	StateUntouched  StepState = "untouched"
	StateValidating StepState = "validating"
	StateInvalid    StepState = "invalid"
	StateSubmitting StepState = "submitting"
	StateFailed     StepState = "failed"
	StateSucceeded  StepState = "succeeded"
)

// EntityKind names the child entities of a conference.
type EntityKind string

const (
	KindTickets  EntityKind = "tickets"
	KindSessions EntityKind = "sessions"
	KindPolicies EntityKind = "policies"
	KindMedia    EntityKind = "media"
	KindSponsors EntityKind = "sponsors"
)

var entityKinds = []EntityKind{KindTickets, KindSessions, KindPolicies, KindMedia, KindSponsors}

func ParseEntityKind(s string) (EntityKind, error) {
	for _, kind := range entityKinds {
		if string(kind) == s {
			return kind, nil
		}
	}
	return "", ErrInvalidStep
}

// Step returns the step editing entities of this kind.
func (k EntityKind) Step() Step {
	return Step(k)
}
