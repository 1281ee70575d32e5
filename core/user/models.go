package user

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/tenant"
)

type User struct {
	ID           int         `json:"id" db:"id"`
	Name         string      `json:"name" db:"name"`
	Email        string      `json:"email" db:"email"`
	PasswordHash []byte      `json:"-" db:"password"`
	Role         string      `json:"role" db:"role"`
	ChurchID     null.Int    `json:"church_id" db:"church_id"`
	ChurchName   null.String `json:"church_name" db:"church_name"`
	Authorized   bool        `json:"authorized" db:"authorized"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsMaster() bool {
	return u.Role == tenant.RoleMaster
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name       string `json:"name" validate:"notblank"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Role       string `json:"role" validate:"required,role"`
	ChurchID   *int   `json:"church_id" validate:"omitempty,min=1"`
	Authorized bool   `json:"authorized"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// An empty Password keeps the current one.
type UpdateUser struct {
	Name       string `json:"name" validate:"notblank"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password"`
	Role       string `json:"role" validate:"required,role"`
	ChurchID   *int   `json:"church_id" validate:"omitempty,min=1"`
	Authorized bool   `json:"authorized"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	uu.Name = core.CleanString(uu.Name)
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	uu.Role = core.CleanString(uu.Role, true /* lower */)
	return validate.Struct(uu)
}

type ChangePassword struct {
	NewPassword string `json:"newPassword" validate:"required"`

	// filled from the caller for the similarity check
	name, email string
}

func (cp *ChangePassword) Validate(validate *validator.Validate, usr User) error {
	cp.name, cp.email = usr.Name, usr.Email
	return validate.Struct(cp)
}

// Login is the result of a successful authentication.
type Login struct {
	User       User
	ChurchID   int // church the session is bound to
	ChurchName null.String
}

func (l Login) Principal() tenant.Principal {
	return tenant.Principal{UserID: l.User.ID, Role: l.User.Role, ChurchID: l.ChurchID}
}
