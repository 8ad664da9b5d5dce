package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/confradar/core"
	"github.com/trezcool/confradar/core/wizard"
	"github.com/trezcool/confradar/services/confapi"
)

var (
	errInvalidIndex = echo.NewHTTPError(http.StatusBadRequest, "invalid entity index")
	errInvalidMode  = echo.NewHTTPError(http.StatusBadRequest, "invalid wizard mode")
)

// errorStatus returns the HTTP status of the errors we know about; 0 for any other error.
func errorStatus(err error) int {
	switch errors.Cause(err).(type) {
	case *core.ValidationError:
		return http.StatusBadRequest
	case *core.UpstreamError, *core.AggregateError:
		return http.StatusBadGateway
	}

	switch errors.Cause(err) {
	case wizard.ErrModeMismatch, wizard.ErrInvalidStep:
		return http.StatusBadRequest
	case wizard.ErrSessionNotFound, wizard.ErrEntityNotFound, confapi.ErrUnknownReference:
		return http.StatusNotFound
	case wizard.ErrSubmissionInFlight, wizard.ErrStepLocked, wizard.ErrNoConference, wizard.ErrIncomplete:
		return http.StatusConflict
	case context.DeadlineExceeded:
		return http.StatusGatewayTimeout
	}
	return 0
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				message = origErr.FieldMap()
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.AggregateError:
			code = http.StatusBadGateway
			message = echo.Map{"errors": origErr.Messages}
		case *core.UpstreamError:
			code = http.StatusBadGateway
			message = origErr.Message
			logger.Warn(err.Error(), err, core.PersonFrom(ctx.Request().Context()))
		default:
			if code = errorStatus(err); code != 0 {
				message = errors.Cause(err).Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), core.PersonFrom(ctx.Request().Context()))

			if ctx.Echo().Debug {
				message = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
