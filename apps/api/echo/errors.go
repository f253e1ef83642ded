package echoapi

import (
	"encoding/json"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/session"
	"github.com/trezcool/kusoma/core/user"
)

// machine-readable error codes
const (
	codeInvalidInput   = "invalid_input"
	codeAuthFailed     = "authentication_failed"
	codeUnauthorized   = "unauthorized"
	codeForbidden      = "forbidden"
	codeNotFound       = "not_found"
	codeRefreshExpired = "refresh_expired"
	codeConnection     = "connection_error"
	codeQuery          = "query_error"
	codeInternal       = "internal_error"
)

var (
	errUnauthorized   = newAPIError(http.StatusUnauthorized, codeUnauthorized, "user not authenticated")
	errForbidden      = newAPIError(http.StatusForbidden, codeForbidden, "permission denied")
	errRefreshExpired = newAPIError(http.StatusForbidden, codeRefreshExpired, "refresh has expired")
	errOAuthDisabled  = newAPIError(http.StatusNotFound, codeNotFound, "sign-in provider not configured")
)

// apiError is an error with a ready-made HTTP status and code.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func newAPIError(status int, code, msg string) *apiError {
	return &apiError{Status: status, Code: code, Message: msg}
}

func (e *apiError) Error() string {
	return e.Message
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		resp := ErrorResponse{Error: http.StatusText(http.StatusInternalServerError), Code: codeInternal}

		var (
			apiErr  *apiError
			connErr *core.ConnectionError
			qryErr  *core.QueryError
			valErr  *core.ValidationError
			vErrs   validator.ValidationErrors
			httpErr *echo.HTTPError
		)
		switch cause := errors.Cause(err); {
		case errors.As(err, &apiErr):
			code, resp.Error, resp.Code = apiErr.Status, apiErr.Message, apiErr.Code
		case errors.As(err, &vErrs):
			code, resp.Error, resp.Code = http.StatusBadRequest, "invalid input", codeInvalidInput
			resp.Fields = make(map[string]string, len(vErrs))
			for _, vErr := range vErrs {
				resp.Fields[vErr.Field()] = vErr.Translate(translator)
			}
		case errors.As(err, &valErr):
			code, resp.Code = http.StatusBadRequest, codeInvalidInput
			resp.Error = valErr.Error()
			if resp.Error == "" {
				resp.Error = "invalid input"
			}
			if valErr.Fields != nil {
				resp.Fields = make(map[string]string, len(valErr.Fields))
				for _, fErr := range valErr.Fields {
					resp.Fields[fErr.Field] = fErr.Error
				}
			}
		case errors.Is(err, core.ErrAuthenticationFailed):
			code, resp.Error, resp.Code = http.StatusUnauthorized, cause.Error(), codeAuthFailed
		case errors.Is(err, user.ErrNotFound):
			code, resp.Error, resp.Code = http.StatusNotFound, "User not found", codeNotFound
		case errors.Is(err, session.ErrRefreshExpired):
			code, resp.Error, resp.Code = http.StatusForbidden, cause.Error(), codeRefreshExpired
		case errors.Is(err, session.ErrInvalidToken), errors.Is(err, session.ErrTokenExpired):
			code, resp.Error, resp.Code = http.StatusUnauthorized, cause.Error(), codeUnauthorized
		case errors.As(err, &connErr):
			resp.Error, resp.Code, resp.Details = "Database connection failed", codeConnection, causeText(connErr.Err)
		case errors.As(err, &qryErr):
			resp.Error, resp.Code, resp.Details = "Database query failed", codeQuery, causeText(qryErr.Err)
			logger.Error(resp.Error, err, contextPerson(ctx))
		case errors.As(err, &httpErr):
			code = httpErr.Code
			resp.Error, resp.Code = httpMessage(httpErr), httpCode(httpErr.Code)
		default: // any other error is a server error
			logger.Error(resp.Error, errors.Wrap(err, resp.Error), contextPerson(ctx))
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError && resp.Details == "" {
			resp.Details = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				logger.Error("sending error response", err)
			}
		}
	}
}

// bindError turns a bind failure (bad JSON, wrong types) into an input error.
func bindError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		httpErr   *echo.HTTPError
	)
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return core.NewValidationError(errors.New("Invalid JSON in request body"))
	case errors.As(err, &httpErr) && httpErr.Code < http.StatusInternalServerError:
		return core.NewValidationError(errors.New("Invalid JSON in request body"))
	default:
		return errors.Wrap(err, "binding request body")
	}
}

func causeText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func httpMessage(he *echo.HTTPError) string {
	if he.Internal != nil {
		var inner *echo.HTTPError
		if errors.As(he.Internal, &inner) {
			he = inner
		}
	}
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	return http.StatusText(he.Code)
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return codeInvalidInput
	case http.StatusUnauthorized:
		return codeUnauthorized
	case http.StatusForbidden:
		return codeForbidden
	case http.StatusNotFound:
		return codeNotFound
	default:
		if status >= http.StatusInternalServerError {
			return codeInternal
		}
		return http.StatusText(status)
	}
}
