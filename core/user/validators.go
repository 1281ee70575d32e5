package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/tenant"
)

var (
	roleTag  = "role"
	roleText = "role must be one of: master, standard"

	churchRequiredTag  = "churchrequired"
	churchRequiredText = "standard users must belong to a church"

	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the user validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{}, ChangePassword{})
	core.RegisterCustomTranslation(validate, translator, churchRequiredTag, churchRequiredText)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	return tenant.IsRole(fl.Field().String())
}

// userStructValidation does struct level validation on NewUser, UpdateUser and ChangePassword structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		validateChurch(usr.Role, usr.ChurchID, sl)
		validatePassword(usr.Password, "password", usr.Name, usr.Email, sl)
	case UpdateUser:
		validateChurch(usr.Role, usr.ChurchID, sl)
		if usr.Password != "" {
			validatePassword(usr.Password, "password", usr.Name, usr.Email, sl)
		}
	case ChangePassword:
		validatePassword(usr.NewPassword, "newPassword", usr.name, usr.email, sl)
	}
}

func validateChurch(role string, churchID *int, sl validator.StructLevel) {
	if role == tenant.RoleStandard && churchID == nil {
		sl.ReportError(churchID, "church_id", "ChurchID", churchRequiredTag, "")
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 6
// - no whitespace
// - no all numeric
// - no user attrs similarity
func validatePassword(pwd, field, name, email string, sl validator.StructLevel) {
	if pwd == "" {
		return // `required` reports it
	}
	reportErr := func(tag string) {
		sl.ReportError(pwd, field, "Password", tag, "")
	}

	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		pass, usrAttr = strings.ToLower(pass), strings.ToLower(usrAttr)
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	local := strings.SplitN(email, "@", 2)[0]
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, email) >= pwdMaxSim || getRatio(pwd, local) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}
