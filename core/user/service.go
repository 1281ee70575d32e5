package user

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/cascade"
	"github.com/conectaebd/backend/core/church"
	"github.com/conectaebd/backend/core/tenant"
)

var (
	// errors
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongChurch        = errors.New("user does not belong to this church")
	ErrNotAuthorized      = errors.New("account not authorized")
	ErrDeleteSelf         = errors.New("you cannot delete your own account")
)

type (
	Repository interface {
		QueryUsers(ctx context.Context, exec ...core.DBExecutor) ([]User, error)
		GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		// CheckEmailUniqueness returns ErrEmailExists when another user (not excludedID) owns email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedID int, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// UpdateUser saves every field; PasswordHash only when set.
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	Service struct {
		repo     Repository
		churches church.Repository
		deleter  *cascade.Deleter
	}
)

func NewService(repo Repository, churches church.Repository, deleter *cascade.Deleter) *Service {
	return &Service{repo: repo, churches: churches, deleter: deleter}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, excludedID int) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedID); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// Authenticate checks the credentials and resolves the church the session is bound to.
// Standard users must pick their own church and must have been authorized by a master.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string, churchID int) (Login, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return Login{}, ErrInvalidCredentials
		}
		return Login{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return Login{}, ErrInvalidCredentials
	}

	if !usr.IsMaster() {
		if !usr.ChurchID.Valid || usr.ChurchID.Int != churchID {
			return Login{}, ErrWrongChurch
		}
		if !usr.Authorized {
			return Login{}, ErrNotAuthorized
		}
	}

	// masters bound to a church stay in it whatever they picked
	login := Login{User: usr, ChurchID: churchID}
	if usr.ChurchID.Valid {
		login.ChurchID = usr.ChurchID.Int
	}

	if login.ChurchID != 0 {
		c, err := svc.churches.GetChurch(ctx, login.ChurchID)
		switch {
		case err == nil:
			login.ChurchName = null.StringFrom(c.Name)
		case errors.Cause(err) != core.ErrNotFound:
			return Login{}, errors.Wrap(err, "finding church")
		}
	}
	return login, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) ChangePassword(ctx context.Context, p tenant.Principal, pwd string) error {
	usr, err := svc.repo.GetUserByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *Service) List(ctx context.Context, p tenant.Principal) ([]User, error) {
	if err := p.RequireMaster(); err != nil {
		return nil, err
	}
	return svc.repo.QueryUsers(ctx)
}

func (svc *Service) checkChurch(ctx context.Context, churchID *int) error {
	if churchID == nil {
		return nil
	}
	if _, err := svc.churches.GetChurch(ctx, *churchID); err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "church_id", Error: "church does not exist"})
		}
		return errors.Wrap(err, "finding church")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, p tenant.Principal, nu NewUser) (User, error) {
	if err := p.RequireMaster(); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email, 0); err != nil {
		return User{}, err
	}
	if err := svc.checkChurch(ctx, nu.ChurchID); err != nil {
		return User{}, err
	}

	usr := User{
		Name:       nu.Name,
		Email:      nu.Email,
		Role:       nu.Role,
		ChurchID:   null.IntFromPtr(nu.ChurchID),
		Authorized: nu.Authorized,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Update(ctx context.Context, p tenant.Principal, id int, uu UpdateUser) (User, error) {
	if err := p.RequireMaster(); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = svc.checkUniqueness(ctx, uu.Email, id); err != nil {
		return User{}, err
	}
	if err = svc.checkChurch(ctx, uu.ChurchID); err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = uu.Role
	usr.ChurchID = null.IntFromPtr(uu.ChurchID)
	usr.Authorized = uu.Authorized
	usr.PasswordHash = nil
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, p tenant.Principal, id int) error {
	if err := p.RequireMaster(); err != nil {
		return err
	}
	// Say No to Suicide! masters cannot delete themselves
	if id == p.UserID {
		return core.NewValidationError(ErrDeleteSelf)
	}
	if _, err := svc.repo.GetUserByID(ctx, id); err != nil {
		return err
	}
	return svc.deleter.Delete(ctx, cascade.User, id)
}
