package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/church"
	"github.com/conectaebd/backend/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	usrRepo    user.Repository
	churchRepo church.Repository
	validate   *validator.Validate
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run the goose migration COMMAND (up, down, status, ...)")
	fmt.Println("  adduser -email EMAIL -name NAME [-master] [-church ID] - create or update a user")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
}

// readPassword prompts for a password on the terminal.
func readPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// describe turns validation errors into a readable message.
func (cli *commandLine) describe(err error) error {
	var msgs []string
	switch verr := err.(type) {
	case validator.ValidationErrors:
		for _, fe := range verr {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Translate(cli.translator)))
		}
	case *core.ValidationError:
		if len(verr.Fields) == 0 {
			return err
		}
		for _, fe := range verr.Fields {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Error))
		}
	default:
		return err
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's name.")
	addUserMaster := addUserCmd.Bool("master", false, "Grant the master role.")
	addUserChurch := addUserCmd.Int("church", 0, "The church of a standard user.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.describe(cli.addUser(*addUserName, *addUserEmail, pwd, *addUserMaster, *addUserChurch))

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.describe(cli.resetPassword(*resetPasswordEmail, pwd))

	default:
		cli.printUsage()
		return errHelp
	}
}
