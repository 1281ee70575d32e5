package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/tenant"
	"github.com/conectaebd/backend/core/user"
)

// addUser updates or creates an authorized user.User
func (cli *commandLine) addUser(name, email, pwd string, isMaster bool, churchID int) error {
	ctx := context.Background()

	nu := user.NewUser{
		Name:       name,
		Email:      email,
		Password:   pwd,
		Role:       tenant.RoleStandard,
		Authorized: true,
	}
	if isMaster {
		nu.Role = tenant.RoleMaster
	}
	if churchID != 0 {
		nu.ChurchID = &churchID
	}
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	if nu.ChurchID != nil {
		if _, err := cli.churchRepo.GetChurch(ctx, *nu.ChurchID); err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				return core.NewValidationError(nil, core.FieldError{Field: "church", Error: "church does not exist"})
			}
			return err
		}
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, nu.Email)
	if err != nil && errors.Cause(err) != core.ErrNotFound {
		return err
	}
	usr.Name = nu.Name
	usr.Email = nu.Email
	usr.Role = nu.Role
	usr.ChurchID = null.IntFromPtr(nu.ChurchID)
	usr.Authorized = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == 0 {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
