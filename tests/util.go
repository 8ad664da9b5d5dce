package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/confradar/core"
	"github.com/trezcool/confradar/core/conference"
	"github.com/trezcool/confradar/storage/database"
)

var (
	EventStart = time.Date(2030, 6, 10, 9, 0, 0, 0, time.UTC)
	SaleStart  = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	SaleEnd    = time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
)

// Config returns a configuration suited to tests: in-memory sessions, short timeouts.
func Config() *core.Config {
	return &core.Config{
		Env:      "TEST",
		TestMode: true,
		AppName:  "ConfRadar",
		Upstream: core.UpstreamConfig{Timeout: 5 * time.Second},
		Wizard: core.WizardConfig{
			IdleTimeout:        time.Hour,
			ReferenceCacheSize: 8,
			ReferenceCacheTTL:  time.Minute,
		},
	}
}

// PrepareDB connects to the test database configured with ENV=TEST and empties the sessions table.
// The test is skipped when no database engine is configured.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("ENV") != "TEST" {
		t.Skip("ENV=TEST not set")
	}
	conf, err := core.NewConfig()
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if conf.Database.InMemory() {
		t.Skip("no test database configured")
	}

	if err = database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if _, err = db.Exec("TRUNCATE wizard_sessions"); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func BasicInfo() conference.BasicInfo {
	ss, se := SaleStart, SaleEnd
	return conference.BasicInfo{
		Title:        "GopherCon",
		Description:  "All things Go",
		StartDate:    EventStart,
		EndDate:      EventStart.Add(48 * time.Hour),
		Location:     conference.Location{Venue: "Hall A", CityID: "city-1"},
		CategoryID:   "cat-1",
		Capacity:     500,
		SaleStart:    &ss,
		SaleEnd:      &se,
		ContactEmail: "org@confradar.test",
	}
}

func TicketTier() conference.TicketTier {
	return conference.TicketTier{Name: "Regular", Price: 10000, Currency: "USD", Quantity: 100}
}

// Session returns a one hour session in room-1, starting offset after the conference start.
func Session(title string, offset time.Duration) conference.Session {
	return conference.Session{
		Title:     title,
		RoomID:    "room-1",
		StartTime: EventStart.Add(offset),
		EndTime:   EventStart.Add(offset + time.Hour),
	}
}
