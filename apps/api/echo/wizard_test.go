package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confradar/core"
	"github.com/trezcool/confradar/core/conference"
	"github.com/trezcool/confradar/core/wizard"
	"github.com/trezcool/confradar/tests"
)

func Test_wizardApi_create(t *testing.T) {
	app, backend := setup(t)
	bi := testutil.BasicInfo()
	bi.Type = conference.TypeFree
	backend.Seed(conference.Conference{ID: "conf-7", BasicInfo: bi})

	tests := []struct {
		httpTest
		data     wizard.NewSession
		wantMode wizard.Mode
		wantErr  string
	}{
		{
			httpTest: httpTest{name: "create", wantCode: http.StatusCreated},
			data:     wizard.NewSession{Mode: wizard.ModeCreate, Type: conference.TypePaid},
			wantMode: wizard.ModeCreate,
		},
		{
			httpTest: httpTest{name: "unknown mode", wantCode: http.StatusBadRequest},
			data:     wizard.NewSession{Mode: "clone"},
			wantErr:  "mode",
		},
		{
			httpTest: httpTest{name: "unknown type", wantCode: http.StatusBadRequest},
			data:     wizard.NewSession{Mode: wizard.ModeCreate, Type: "vip"},
			wantErr:  "type",
		},
		{
			httpTest: httpTest{name: "edit without conference", wantCode: http.StatusBadRequest},
			data:     wizard.NewSession{Mode: wizard.ModeEdit},
			wantErr:  "conference_id",
		},
		{
			httpTest: httpTest{name: "edit", wantCode: http.StatusCreated},
			data:     wizard.NewSession{Mode: wizard.ModeEdit, ConferenceID: "conf-7"},
			wantMode: wizard.ModeEdit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/wizards"
			tt.body = marshallObj(t, tt.data)

			if tt.wantErr != "" {
				var fldErrs map[string]string
				do(t, app, tt.httpTest, &fldErrs)
				assert.Contains(t, fldErrs, tt.wantErr)
				return
			}

			var snap wizard.Snapshot
			do(t, app, tt.httpTest, &snap)
			assert.NotEmpty(t, snap.ID)
			assert.Equal(t, tt.wantMode, snap.Mode)
			if tt.wantMode == wizard.ModeEdit {
				assert.Equal(t, "conf-7", snap.ConferenceID)
				assert.Equal(t, conference.TypeFree, snap.Type)
				assert.Len(t, snap.CompletedSteps, snap.MaxStep)
			}
		})
	}
}

func Test_wizardApi_submitFlow(t *testing.T) {
	app, backend := setup(t)
	snap := startWizard(t, app, conference.TypePaid)
	base := "/v1/wizards/" + snap.ID

	// invalid basic info never reaches the network
	var res wizard.Result
	do(t, app, httpTest{method: http.MethodPost, path: base + "/steps/basic-info/submit", wantCode: http.StatusBadRequest}, &res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors, "title")
	assert.Equal(t, 0, backend.CallCount("CreateConference"))

	// later steps cannot be saved before the conference exists
	do(t, app, httpTest{
		method:   http.MethodPost,
		path:     base + "/steps/policies/submit",
		wantCode: http.StatusConflict,
		wantData: marshallObj(t, httpErr{Error: wizard.ErrNoConference.Error()}),
	})

	do(t, app, httpTest{
		method:   http.MethodPut,
		path:     base + "/steps/basic-info",
		body:     marshallObj(t, testutil.BasicInfo()),
		wantCode: http.StatusOK,
	})
	res = wizard.Result{}
	do(t, app, httpTest{method: http.MethodPost, path: base + "/steps/basic-info/submit", wantCode: http.StatusOK}, &res)
	assert.True(t, res.Success)
	assert.Equal(t, "conf-1", res.ConferenceID)
	assert.Equal(t, 2, res.Session.CurrentStep)

	do(t, app, httpTest{
		method:   http.MethodPut,
		path:     base + "/steps/tickets",
		body:     marshallObj(t, conference.TicketsForm{Tickets: []conference.TicketTier{testutil.TicketTier()}}),
		wantCode: http.StatusOK,
	})
	res = wizard.Result{}
	do(t, app, httpTest{method: http.MethodPost, path: base + "/steps/tickets/submit", wantCode: http.StatusOK}, &res)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Session.CurrentStep)
	assert.Equal(t, []int{1, 2}, res.Session.CompletedSteps)

	conf, ok := backend.Conference("conf-1")
	require.True(t, ok)
	assert.Len(t, conf.Tickets, 1)
}

func Test_wizardApi_submitFailure(t *testing.T) {
	app, backend := setup(t)
	backend.Fail["CreateConference"] = core.NewUpstreamError(http.StatusInternalServerError, "boom")
	snap := startWizard(t, app, conference.TypeFree)
	base := "/v1/wizards/" + snap.ID

	do(t, app, httpTest{
		method:   http.MethodPut,
		path:     base + "/steps/basic-info",
		body:     marshallObj(t, testutil.BasicInfo()),
		wantCode: http.StatusOK,
	})

	var res wizard.Result
	do(t, app, httpTest{method: http.MethodPost, path: base + "/steps/basic-info/submit", wantCode: http.StatusBadGateway}, &res)
	assert.False(t, res.Success)
	assert.Equal(t, "Saving basic-info failed: boom", res.Message)
	assert.Equal(t, 1, res.Session.CurrentStep, "stays on the failed step")
	assert.Equal(t, wizard.StateFailed, res.Session.Steps[0].State)
}

func Test_wizardApi_errors(t *testing.T) {
	app, _ := setup(t)
	snap := startWizard(t, app, conference.TypePaid)
	base := "/v1/wizards/" + snap.ID

	tests := []httpTest{
		{
			name:     "unknown session",
			method:   http.MethodGet,
			path:     "/v1/wizards/nope",
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: wizard.ErrSessionNotFound.Error()}),
		},
		{
			name:     "unknown step",
			method:   http.MethodPut,
			path:     base + "/steps/catering",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: wizard.ErrInvalidStep.Error()}),
		},
		{
			name:     "jump over required steps",
			method:   http.MethodPost,
			path:     base + "/navigation",
			body:     []byte(`{"action":"goto","step":3}`),
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: wizard.ErrStepLocked.Error()}),
		},
		{
			name:     "invalid navigation",
			method:   http.MethodPost,
			path:     base + "/navigation",
			body:     []byte(`{"action":"jump"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "submit all in create mode",
			method:   http.MethodPost,
			path:     base + "/submit-all",
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: wizard.ErrModeMismatch.Error()}),
		},
		{
			name:     "complete too early",
			method:   http.MethodPost,
			path:     base + "/complete",
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: wizard.ErrIncomplete.Error()}),
		},
		{
			name:     "bad entity index",
			method:   http.MethodDelete,
			path:     base + "/entities/tickets/first",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"invalid entity index"}`),
		},
		{
			name:     "missing entity",
			method:   http.MethodDelete,
			path:     base + "/entities/tickets/0",
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: wizard.ErrEntityNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			do(t, app, tt)
		})
	}
}

func Test_wizardApi_checkField(t *testing.T) {
	app, _ := setup(t)
	snap := startWizard(t, app, conference.TypePaid)
	base := "/v1/wizards/" + snap.ID

	var check wizard.FieldCheck
	do(t, app, httpTest{method: http.MethodGet, path: base + "/steps/basic-info/fields/title", wantCode: http.StatusOK}, &check)
	assert.Equal(t, "title", check.Field)
	assert.Contains(t, check.Rules, "required")
	assert.Equal(t, "required", check.Error)

	var got wizard.Snapshot
	do(t, app, httpTest{method: http.MethodGet, path: base, wantCode: http.StatusOK}, &got)
	assert.Equal(t, "required", got.Errors[wizard.StepBasicInfo]["title"])

	do(t, app, httpTest{method: http.MethodGet, path: base + "/steps/basic-info/fields/nickname", wantCode: http.StatusBadRequest})
}

func Test_wizardApi_identity(t *testing.T) {
	app, _ := setup(t)
	alice, bob := getToken(t, "alice"), getToken(t, "bob")

	mine := startWizard(t, app, conference.TypePaid, alice)
	assert.Equal(t, "alice", mine.Owner)
	startWizard(t, app, conference.TypeFree, bob)
	anon := startWizard(t, app, conference.TypeFree, "not-a-jwt")
	assert.Empty(t, anon.Owner, "malformed tokens are forwarded untagged")

	var snaps []wizard.Snapshot
	do(t, app, httpTest{method: http.MethodGet, path: "/v1/wizards", token: alice, wantCode: http.StatusOK}, &snaps)
	require.Len(t, snaps, 1)
	assert.Equal(t, mine.ID, snaps[0].ID)
}

func Test_wizardApi_destroy(t *testing.T) {
	app, _ := setup(t)
	snap := startWizard(t, app, conference.TypePaid)
	path := "/v1/wizards/" + snap.ID

	do(t, app, httpTest{method: http.MethodDelete, path: path, wantCode: http.StatusNoContent})
	do(t, app, httpTest{method: http.MethodGet, path: path, wantCode: http.StatusNotFound})
	do(t, app, httpTest{method: http.MethodDelete, path: path, wantCode: http.StatusNotFound})
}

func Test_referenceApi(t *testing.T) {
	app, _ := setup(t)

	do(t, app, httpTest{
		method:   http.MethodGet,
		path:     "/v1/reference/cities",
		wantCode: http.StatusOK,
		wantData: []byte(`[{"id":"city-1","name":"Kinshasa","country":"CD"}]`),
	})
	do(t, app, httpTest{method: http.MethodGet, path: "/v1/reference/planets", wantCode: http.StatusNotFound})
}
