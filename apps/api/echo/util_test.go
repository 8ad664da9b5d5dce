package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confradar/apps/api/echo"
	"github.com/trezcool/confradar/core"
	"github.com/trezcool/confradar/core/conference"
	"github.com/trezcool/confradar/core/wizard"
	"github.com/trezcool/confradar/services/confapi"
	"github.com/trezcool/confradar/services/email"
	"github.com/trezcool/confradar/services/logger"
	"github.com/trezcool/confradar/storage/database/inmem"
	"github.com/trezcool/confradar/tests"
)

type referencesMock struct{}

func (referencesMock) Lookup(_ context.Context, kind string) (interface{}, error) {
	if kind != confapi.RefCities {
		return nil, confapi.ErrUnknownReference
	}
	return []conference.City{{ID: "city-1", Name: "Kinshasa", Country: "CD"}}, nil
}

func setup(t *testing.T) (*echoapi.Server, *wizard.BackendMock) {
	t.Helper()
	conf := testutil.Config()
	logger := logsvc.NewLoggerMock()
	backend := wizard.NewBackendMock()
	validator := conference.NewValidator(core.NewTranslator())
	svc := wizard.NewService(
		conf,
		backend,
		inmemdb.NewSessionRepository(inmemdb.Open()),
		validator,
		emailsvc.NewConsoleServiceMock(conf, logger),
		logger,
	)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		WizardSvc:      svc,
		References:     referencesMock{},
		Validator:      validator,
		DisableReqLogs: true,
	})
	return app, backend
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// getToken signs a token for subject; the API never verifies signatures.
func getToken(t *testing.T, subject string) string {
	claims := echoapi.Claims{
		StandardClaims: jwt.StandardClaims{Subject: subject},
		Username:       subject,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any key"))
	require.NoError(t, err)
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// do serves the request and decodes the response into v, when given.
func do(t *testing.T, app http.Handler, tt httpTest, v ...interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
	if len(v) > 0 {
		decode(t, rec, v[0])
	}
	return rec
}

func startWizard(t *testing.T, app http.Handler, typ conference.Type, token ...string) wizard.Snapshot {
	t.Helper()
	var tok string
	if len(token) > 0 {
		tok = token[0]
	}
	var snap wizard.Snapshot
	do(t, app, httpTest{
		method:   http.MethodPost,
		path:     "/v1/wizards",
		body:     marshallObj(t, wizard.NewSession{Mode: wizard.ModeCreate, Type: typ}),
		token:    tok,
		wantCode: http.StatusCreated,
	}, &snap)
	return snap
}
