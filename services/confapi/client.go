package confapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/confradar/core"
	"github.com/trezcool/confradar/core/conference"
	"github.com/trezcool/confradar/core/wizard"
)

type (
	// Client talks to the conference REST API.
	Client struct {
		baseURL string
		token   string // used when the caller has none
		rest    *rest.Client
	}

	createResponse struct {
		ConferenceID string `json:"conference_id"`
	}

	entitiesRequest struct {
		Items      interface{} `json:"items"`
		DeletedIDs []string    `json:"deleted_ids"`
	}

	errorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
)

var _ wizard.Backend = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.Upstream.BaseURL, "/"),
		token:   conf.Upstream.Token,
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: conf.Upstream.Timeout}},
	}
}

// do sends a JSON request and decodes a 2xx body into out (when not nil).
// Non-2xx responses are returned as *core.UpstreamError.
func (c *Client) do(ctx context.Context, method rest.Method, path string, in, out interface{}) error {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	token := core.AuthToken(ctx)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}

	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	httpRes, err := c.rest.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return core.NewUpstreamError(0, err.Error())
	}
	res, err := rest.BuildResponse(httpRes)
	if err != nil {
		return core.NewUpstreamError(httpRes.StatusCode, err.Error())
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return core.NewUpstreamError(res.StatusCode, errorMessage(res))
	}
	if out != nil && res.Body != "" {
		if err = json.Unmarshal([]byte(res.Body), out); err != nil {
			return errors.Wrapf(err, "decoding %s %s response", method, path)
		}
	}
	return nil
}

func errorMessage(res *rest.Response) string {
	var body errorResponse
	if err := json.Unmarshal([]byte(res.Body), &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if msg := strings.TrimSpace(res.Body); msg != "" {
		return msg
	}
	return http.StatusText(res.StatusCode)
}

func conferencePath(id string, parts ...string) string {
	return "/conferences/" + strings.Join(append([]string{id}, parts...), "/")
}

func (c *Client) CreateConference(ctx context.Context, bi conference.BasicInfo) (string, error) {
	var res createResponse
	if err := c.do(ctx, rest.Post, "/conferences", bi, &res); err != nil {
		return "", err
	}
	return res.ConferenceID, nil
}

func (c *Client) UpdateBasicInfo(ctx context.Context, conferenceID string, bi conference.BasicInfo) error {
	return c.do(ctx, rest.Put, conferencePath(conferenceID), bi, nil)
}

func (c *Client) putEntities(ctx context.Context, conferenceID string, kind wizard.EntityKind, items interface{}, deletedIDs []string) error {
	if deletedIDs == nil {
		deletedIDs = []string{}
	}
	body := entitiesRequest{Items: items, DeletedIDs: deletedIDs}
	if err := c.do(ctx, rest.Put, conferencePath(conferenceID, string(kind)), body, nil); err != nil {
		return errors.Wrapf(err, "saving %s", kind)
	}
	return nil
}

func (c *Client) PutTickets(ctx context.Context, conferenceID string, items []conference.TicketTier, deletedIDs []string) error {
	return c.putEntities(ctx, conferenceID, wizard.KindTickets, items, deletedIDs)
}

func (c *Client) PutSessions(ctx context.Context, conferenceID string, items []conference.Session, deletedIDs []string) error {
	return c.putEntities(ctx, conferenceID, wizard.KindSessions, items, deletedIDs)
}

func (c *Client) PutPolicies(ctx context.Context, conferenceID string, items []conference.Policy, deletedIDs []string) error {
	return c.putEntities(ctx, conferenceID, wizard.KindPolicies, items, deletedIDs)
}

func (c *Client) PutMedia(ctx context.Context, conferenceID string, items []conference.MediaItem, deletedIDs []string) error {
	return c.putEntities(ctx, conferenceID, wizard.KindMedia, items, deletedIDs)
}

func (c *Client) PutSponsors(ctx context.Context, conferenceID string, items []conference.Sponsor, deletedIDs []string) error {
	return c.putEntities(ctx, conferenceID, wizard.KindSponsors, items, deletedIDs)
}

func (c *Client) GetConference(ctx context.Context, conferenceID string) (conference.Conference, error) {
	var conf conference.Conference
	if err := c.do(ctx, rest.Get, conferencePath(conferenceID), nil, &conf); err != nil {
		return conference.Conference{}, err
	}
	if conf.ID == "" {
		conf.ID = conferenceID
	}
	return conf, nil
}

// SubmitAll sends every step at once. A 2xx or 422 answer carries the aggregate outcome.
func (c *Client) SubmitAll(ctx context.Context, conferenceID string, changes wizard.AllChanges) (wizard.AggregateResponse, error) {
	var res wizard.AggregateResponse
	err := c.do(ctx, rest.Put, conferencePath(conferenceID, "all"), changes, &res)
	if err == nil {
		return res, nil
	}

	if upErr, ok := errors.Cause(err).(*core.UpstreamError); ok && upErr.Status == http.StatusUnprocessableEntity {
		if jsonErr := json.Unmarshal([]byte(upErr.Message), &res); jsonErr == nil && len(res.Errors) > 0 {
			return res, nil
		}
		return wizard.AggregateResponse{Errors: []string{upErr.Message}}, nil
	}
	return res, err
}
