package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/user"
)

type userApi struct {
	conf     *core.Config
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(
	g *echo.Group,
	jwt, master echo.MiddlewareFunc,
	conf *core.Config,
	svc *user.Service,
	validate *validator.Validate,
) {
	api := userApi{
		conf:     conf,
		svc:      svc,
		validate: validate,
	}

	// un-authed endpoints
	g.POST("/login", api.login)

	// authed endpoints
	ag := g.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("/change-password", api.changePassword)

	ug := ag.Group("/users", master)
	ug.GET("", api.query)
	ug.POST("", api.create)
	ug.PUT("/:id", api.update)
	ug.DELETE("/:id", api.destroy)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	login, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password, data.ChurchID)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, NewClaims(api.conf, login.Principal()))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User: SessionUser{
			ID:         login.User.ID,
			Name:       login.User.Name,
			Email:      login.User.Email,
			Role:       login.User.Role,
			ChurchID:   null.NewInt(login.ChurchID, login.ChurchID != 0),
			ChurchName: login.ChurchName,
		},
	})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) changePassword(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), p.UserID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return errUnauthorized
		}
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err = data.Validate(api.validate, usr); err != nil {
		return err
	}

	if err = api.svc.ChangePassword(ctx.Request().Context(), p, data.NewPassword); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, success)
}

func (api *userApi) query(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	users, err := api.svc.List(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) create(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data user.NewUser
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusOK, created(usr.ID))
}

func (api *userApi) update(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateUser
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if _, err = api.svc.Update(ctx.Request().Context(), p, id, data); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, success)
}

func (api *userApi) destroy(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.JSON(http.StatusOK, success)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		ChurchID int    `json:"churchId" validate:"min=0"`
	}

	// SessionUser summarizes the logged in user for the client.
	SessionUser struct {
		ID         int         `json:"id"`
		Name       string      `json:"name"`
		Email      string      `json:"email"`
		Role       string      `json:"role"`
		ChurchID   null.Int    `json:"church_id"`
		ChurchName null.String `json:"church_name"`
	}

	LoginResponse struct {
		Token string      `json:"token"`
		User  SessionUser `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
