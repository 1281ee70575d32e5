package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/user"
	logsvc "github.com/conectaebd/backend/services/logger"
	"github.com/conectaebd/backend/storage/database"
	sqlxrepos "github.com/conectaebd/backend/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	timeout := conf.Database.QueryTimeout
	cli := commandLine{
		db:         db.DB,
		usrRepo:    sqlxrepos.NewUserRepository(db, timeout),
		churchRepo: sqlxrepos.NewChurchRepository(db, timeout),
		validate:   validator.New(),
		translator: newTranslator(),
	}
	core.InitValidators(cli.validate, cli.translator)
	user.InitValidators(cli.validate, cli.translator)

	err = cli.run(os.Args)
	_ = db.Close()
	_ = logger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
