package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/conectaebd/backend/apps/api/echo"
	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/attendance"
	"github.com/conectaebd/backend/core/cascade"
	"github.com/conectaebd/backend/core/church"
	"github.com/conectaebd/backend/core/magazine"
	"github.com/conectaebd/backend/core/material"
	"github.com/conectaebd/backend/core/roster"
	"github.com/conectaebd/backend/core/schedule"
	"github.com/conectaebd/backend/core/user"
	logsvc "github.com/conectaebd/backend/services/logger"
	"github.com/conectaebd/backend/services/metrics"
	"github.com/conectaebd/backend/services/objectstore"
	"github.com/conectaebd/backend/storage/database"
	sqlxrepos "github.com/conectaebd/backend/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up logger
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)
	defer func() { _ = logger.Sync() }()

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close database", err)
		}
	}()

	storage, err := objectstore.New(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}

	// set up services
	timeout := conf.Database.QueryTimeout
	churchRepo := sqlxrepos.NewChurchRepository(db, timeout)
	magRepo := sqlxrepos.NewMagazineRepository(db, timeout)
	rosterRepo := sqlxrepos.NewRosterRepository(db, timeout)
	tx := database.NewTransactor(db)
	deleter := cascade.NewDeleter(tx, sqlxrepos.NewCascadeStore(timeout), logger, metrics.Observer{})

	materialSvc := material.NewService(
		sqlxrepos.NewMaterialRepository(db, timeout), churchRepo, storage, deleter, logger, conf.Storage.CoverMaxWidth,
	)
	deps := echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		DB:            db,
		UserSvc:       user.NewService(sqlxrepos.NewUserRepository(db, timeout), churchRepo, deleter),
		ChurchSvc:     church.NewService(churchRepo, deleter, materialSvc, logger),
		MagazineSvc:   magazine.NewService(magRepo, deleter),
		RosterSvc:     roster.NewService(rosterRepo, magRepo, deleter),
		AttendanceSvc: attendance.NewService(sqlxrepos.NewAttendanceRepository(db, timeout), rosterRepo, magRepo, tx, metrics.Observer{}),
		ScheduleSvc:   schedule.NewService(sqlxrepos.NewScheduleRepository(db, timeout), rosterRepo, magRepo),
		MaterialSvc:   materialSvc,
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	deps.Validate = validator.New()
	deps.Translator = newTranslator()
	core.InitValidators(deps.Validate, deps.Translator)
	user.InitValidators(deps.Validate, deps.Translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(deps)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
