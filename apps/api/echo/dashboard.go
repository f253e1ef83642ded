package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/tutor"
	"github.com/trezcool/kusoma/core/user"
)

// StudentService is what the dashboard and chat endpoints need from the identity store.
type StudentService interface {
	Dashboard(ctx context.Context, email string) (user.Dashboard, error)
	WeakTopics(ctx context.Context, email string) ([]string, error)
}

type studentApi struct {
	svc             StudentService
	validate        *validator.Validate
	strictOwnership bool
}

func registerStudentAPI(g *echo.Group, optSession echo.MiddlewareFunc, api *studentApi) {
	g.POST("/dashboard", api.dashboard, optSession)
	g.POST("/chat", api.chat, optSession)
}

// Handlers

func (api *studentApi) dashboard(ctx echo.Context) error {
	var data DashboardRequest
	if err := ctx.Bind(&data); err != nil {
		return bindError(err)
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkOwner(ctx, data.Email); err != nil {
		return err
	}

	dash, err := api.svc.Dashboard(ctx.Request().Context(), data.Email)
	if err != nil {
		return errors.Wrap(err, "fetching dashboard")
	}

	resp := DashboardResponse{
		Performance: dash.Performance,
		Result:      dash.Result,
		WeakTopics:  dash.WeakTopics,
	}
	resp.User.Name = dash.Name
	return ctx.JSON(http.StatusOK, resp)
}

func (api *studentApi) chat(ctx echo.Context) error {
	var data ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return bindError(err)
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkOwner(ctx, data.Email); err != nil {
		return err
	}

	topics, err := api.svc.WeakTopics(ctx.Request().Context(), data.Email)
	if err != nil {
		return errors.Wrap(err, "fetching weak topics")
	}
	return ctx.JSON(http.StatusOK, ChatResponse{
		Text:  tutor.Respond(data.Message, topics),
		Model: tutor.Model,
	})
}

// checkOwner only restricts anything when strict ownership is on: the body email must then be
// the session's own.
func (api *studentApi) checkOwner(ctx echo.Context, email string) error {
	if !api.strictOwnership {
		return nil
	}
	identity, ok := getContextIdentity(ctx)
	if !ok {
		return errUnauthorized
	}
	if identity.Email != email {
		return errForbidden
	}
	return nil
}

type (
	DashboardRequest struct {
		Email string `json:"email" validate:"required"`
	}

	DashboardResponse struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		Performance []user.PerformancePoint `json:"performanceData"`
		Result      user.ResultHistory      `json:"result"`
		WeakTopics  []string                `json:"weakTopics"`
	}

	ChatRequest struct {
		Message string `json:"message"`
		Email   string `json:"email" validate:"required"`
	}

	ChatResponse struct {
		Text  string `json:"text"`
		Model string `json:"model"`
	}
)

func (dr *DashboardRequest) Validate(validate *validator.Validate) error {
	dr.Email = core.CleanString(dr.Email)
	return validate.Struct(dr)
}

func (cr *ChatRequest) Validate(validate *validator.Validate) error {
	cr.Email = core.CleanString(cr.Email)
	return validate.Struct(cr)
}
