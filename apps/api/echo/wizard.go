package echoapi

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/confradar/core"
	"github.com/trezcool/confradar/core/conference"
	"github.com/trezcool/confradar/core/wizard"
)

type wizardApi struct {
	svc       *wizard.Service
	validator *conference.Validator
	logger    core.Logger
}

func registerWizardAPI(g *echo.Group, svc *wizard.Service, validator *conference.Validator, logger core.Logger) {
	api := wizardApi{
		svc:       svc,
		validator: validator,
		logger:    logger,
	}

	wg := g.Group("/wizards")
	wg.POST("", api.create)
	wg.GET("", api.query)

	// detail endpoints
	dg := wg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.PUT("/steps/:step", api.updateStep)
	dg.GET("/steps/:step/fields/:field", api.checkField)
	dg.POST("/steps/:step/submit", api.submitStep)
	dg.POST("/submit-all", api.submitAll)
	dg.DELETE("/entities/:kind/:index", api.removeEntity)
	dg.POST("/navigation", api.navigate)
	dg.POST("/complete", api.complete)
}

// Handlers

func (api *wizardApi) create(ctx echo.Context) error {
	var data wizard.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := api.validator.Validate(data); err != nil {
		return err
	}

	var snap wizard.Snapshot
	var err error
	switch data.Mode {
	case wizard.ModeCreate:
		snap, err = api.svc.Start(ctx.Request().Context(), data.Type)
	case wizard.ModeEdit:
		snap, err = api.svc.Open(ctx.Request().Context(), data.ConferenceID)
	default:
		return errInvalidMode
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, snap)
}

// query lists the sessions started by the caller.
func (api *wizardApi) query(ctx echo.Context) error {
	snaps, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return err
	}

	var owner string
	if claims, ok := getContextClaims(ctx); ok {
		owner = claims.Subject
	}
	res := make([]wizard.Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		if snap.Owner == owner {
			res = append(res, snap)
		}
	}

	var ord Ordering
	ord.Bind(ctx)
	ord.Sort(res)
	return ctx.JSON(http.StatusOK, res)
}

func (api *wizardApi) retrieve(ctx echo.Context) error {
	snap, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *wizardApi) destroy(ctx echo.Context) error {
	if err := api.svc.Close(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// updateStep replaces the form state of a step with the request body.
func (api *wizardApi) updateStep(ctx echo.Context) error {
	step, err := wizard.ParseStep(ctx.Param("step"))
	if err != nil {
		return err
	}
	reqCtx, id := ctx.Request().Context(), ctx.Param("id")

	var snap wizard.Snapshot
	switch step {
	case wizard.StepBasicInfo:
		var data conference.BasicInfo
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to BasicInfo")
		}
		snap, err = api.svc.UpdateBasicInfo(reqCtx, id, data)
	case wizard.StepTickets:
		var data conference.TicketsForm
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to TicketsForm")
		}
		snap, err = api.svc.SetTickets(reqCtx, id, data.Tickets)
	case wizard.StepSessions:
		var data conference.SessionsForm
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to SessionsForm")
		}
		snap, err = api.svc.SetSessions(reqCtx, id, data.Sessions)
	case wizard.StepPolicies:
		var data conference.PoliciesForm
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to PoliciesForm")
		}
		snap, err = api.svc.SetPolicies(reqCtx, id, data.Policies)
	case wizard.StepMedia:
		var data conference.MediaForm
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to MediaForm")
		}
		snap, err = api.svc.SetMedia(reqCtx, id, data.Media)
	case wizard.StepSponsors:
		var data conference.SponsorsForm
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to SponsorsForm")
		}
		snap, err = api.svc.SetSponsors(reqCtx, id, data.Sponsors)
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *wizardApi) checkField(ctx echo.Context) error {
	step, err := wizard.ParseStep(ctx.Param("step"))
	if err != nil {
		return err
	}
	field, err := url.PathUnescape(ctx.Param("field"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid field path")
	}

	res, err := api.svc.CheckField(ctx.Request().Context(), ctx.Param("id"), step, field)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

// submitStep answers failed submissions with the step outcome, so the client can render errors
// and the notification next to the form.
func (api *wizardApi) submitStep(ctx echo.Context) error {
	step, err := wizard.ParseStep(ctx.Param("step"))
	if err != nil {
		return err
	}

	res, err := api.svc.SubmitStep(ctx.Request().Context(), ctx.Param("id"), step)
	if err != nil {
		return api.failedResult(ctx, err, res.Session, res)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *wizardApi) submitAll(ctx echo.Context) error {
	res, err := api.svc.SubmitAll(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return api.failedResult(ctx, err, res.Session, res)
	}
	return ctx.JSON(http.StatusOK, res)
}

// failedResult sends the outcome of a failed submission; errors raised before anything was attempted
// go through the error handler.
func (api *wizardApi) failedResult(ctx echo.Context, err error, snap wizard.Snapshot, res interface{}) error {
	if snap.ID == "" {
		return err
	}
	code := errorStatus(err)
	if code == 0 {
		code = http.StatusBadGateway
	}
	if code != http.StatusBadRequest {
		api.logger.Warn(err.Error(), err, core.PersonFrom(ctx.Request().Context()))
	}
	return ctx.JSON(code, res)
}

func (api *wizardApi) removeEntity(ctx echo.Context) error {
	kind, err := wizard.ParseEntityKind(ctx.Param("kind"))
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return errInvalidIndex
	}

	snap, err := api.svc.RemoveEntity(ctx.Request().Context(), ctx.Param("id"), kind, index)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *wizardApi) navigate(ctx echo.Context) error {
	var data wizard.Navigation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Navigation")
	}
	if err := api.validator.Validate(data); err != nil {
		return err
	}

	snap, err := api.svc.Navigate(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *wizardApi) complete(ctx echo.Context) error {
	snap, err := api.svc.Complete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snap)
}
