package conference

import "time"

type Type string

const (
	TypePaid Type = "paid"
	TypeFree Type = "free"
)

// Policy kinds
const (
	PolicyRefund        = "refund"
	PolicyPrivacy       = "privacy"
	PolicyCodeOfConduct = "code_of_conduct"
	PolicyOther         = "other"
)

// Media kinds
const (
	MediaImage    = "image"
	MediaVideo    = "video"
	MediaDocument = "document"
)

type Location struct {
	Venue   string `json:"venue" validate:"required,max=200"`
	CityID  string `json:"city_id" validate:"required"`
	Address string `json:"address" validate:"omitempty,max=300"`
}

// BasicInfo is the form of the first wizard step.
// The sale window is required for paid conferences.
type BasicInfo struct {
	Title        string     `json:"title" validate:"required,min=3,max=200"`
	Description  string     `json:"description" validate:"required,max=5000"`
	StartDate    time.Time  `json:"start_date" validate:"required"`
	EndDate      time.Time  `json:"end_date" validate:"required"`
	Location     Location   `json:"location"`
	CategoryID   string     `json:"category_id" validate:"required"`
	Capacity     int        `json:"capacity" validate:"required,min=1,max=100000"`
	SaleStart    *time.Time `json:"sale_start,omitempty"`
	SaleEnd      *time.Time `json:"sale_end,omitempty"`
	ContactEmail string     `json:"contact_email" validate:"required,email"`
	Website      string     `json:"website,omitempty" validate:"omitempty,httpurl"`
	Type         Type       `json:"type" validate:"required,oneof=paid free"`
}

// TicketTier prices are expressed in minor currency units.
type TicketTier struct {
	ID             string     `json:"id,omitempty"`
	Name           string     `json:"name" validate:"required,max=100"`
	Description    string     `json:"description,omitempty" validate:"omitempty,max=1000"`
	Price          int64      `json:"price" validate:"gte=0,lte=100000000"`
	EarlyBirdPrice *int64     `json:"early_bird_price,omitempty" validate:"omitempty,gte=0"`
	Currency       string     `json:"currency" validate:"required,currency"`
	Quantity       int        `json:"quantity" validate:"required,min=1"`
	SaleStart      *time.Time `json:"sale_start,omitempty"`
	SaleEnd        *time.Time `json:"sale_end,omitempty"`
}

type Session struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title" validate:"required,max=200"`
	Speaker   string    `json:"speaker,omitempty" validate:"omitempty,max=200"`
	RoomID    string    `json:"room_id" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Capacity  int       `json:"capacity,omitempty" validate:"omitempty,min=1"`
}

type Policy struct {
	ID            string `json:"id,omitempty"`
	Kind          string `json:"kind" validate:"required,oneof=refund privacy code_of_conduct other"`
	Title         string `json:"title" validate:"required,max=200"`
	Body          string `json:"body" validate:"required,max=20000"`
	RefundPercent *int   `json:"refund_percent,omitempty" validate:"omitempty,min=0,max=100"`
	DeadlineDays  *int   `json:"deadline_days,omitempty" validate:"omitempty,min=0,max=365"`
}

type MediaItem struct {
	ID      string `json:"id,omitempty"`
	Kind    string `json:"kind" validate:"required,oneof=image video document"`
	URL     string `json:"url" validate:"required,httpurl"`
	Caption string `json:"caption,omitempty" validate:"omitempty,max=300"`
	Cover   bool   `json:"cover,omitempty"`
}

type Sponsor struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name" validate:"required,max=200"`
	Tier    string `json:"tier" validate:"required,oneof=platinum gold silver bronze partner"`
	LogoURL string `json:"logo_url" validate:"required,httpurl"`
	Website string `json:"website,omitempty" validate:"omitempty,httpurl"`
}

// Conference is the nested structure served by the conference API for a single conference.
type Conference struct {
	ID        string       `json:"id"`
	Status    string       `json:"status,omitempty"`
	BasicInfo BasicInfo    `json:"basic_info"`
	Tickets   []TicketTier `json:"tickets"`
	Sessions  []Session    `json:"sessions"`
	Policies  []Policy     `json:"policies"`
	Media     []MediaItem  `json:"media"`
	Sponsors  []Sponsor    `json:"sponsors"`
}

// Reference data, read-only lookups feeding select options.
type (
	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	City struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Country string `json:"country,omitempty"`
	}

	Room struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Capacity int    `json:"capacity"`
	}

	Status struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
)

// Step records group a step's entities for validation.
// Basic carries the basic-info form for cross-step checks and is never validated itself.
type (
	TicketsForm struct {
		Basic   BasicInfo    `json:"-" validate:"-"`
		Tickets []TicketTier `json:"tickets" validate:"required,min=1,dive"`
	}

	SessionsForm struct {
		Basic    BasicInfo `json:"-" validate:"-"`
		Sessions []Session `json:"sessions" validate:"required,min=1,dive"`
	}

	PoliciesForm struct {
		Policies []Policy `json:"policies" validate:"dive"`
	}

	MediaForm struct {
		Media []MediaItem `json:"media" validate:"dive"`
	}

	SponsorsForm struct {
		Sponsors []Sponsor `json:"sponsors" validate:"dive"`
	}
)
