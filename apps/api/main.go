package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/kusoma/apps/api/echo"
	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/session"
	"github.com/trezcool/kusoma/core/user"
	logsvc "github.com/trezcool/kusoma/services/logger"
	oauthsvc "github.com/trezcool/kusoma/services/oauth"
	"github.com/trezcool/kusoma/storage/database"
	mongorepos "github.com/trezcool/kusoma/storage/database/mongodb"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Wait()

	// set up DB: connect eagerly so that misconfiguration shows up at boot
	dbm := database.NewManager(conf.Database, dbLogger)
	bootCtx, cancelBoot := context.WithTimeout(context.Background(), conf.Database.ConnectTimeout)
	if _, err = dbm.Client(bootCtx); err != nil {
		// not fatal: the next request tries again
		dbLogger.Error("initial database connection failed", err)
	}
	cancelBoot()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := dbm.Close(ctx); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	usrSvc := user.NewService(mongorepos.NewUserRepository(dbm))
	issuer, err := session.NewIssuer(usrSvc, logger, session.Options{
		AppName:                conf.AppName,
		SecretKey:              []byte(conf.SecretKey),
		ExpirationDelta:        conf.Server.JWTExpirationDelta,
		RefreshExpirationDelta: conf.Server.JWTRefreshExpirationDelta,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up session issuer: %v", err), err)
	}

	var provider oauthsvc.Provider
	if conf.Auth.OAuthEnabled() {
		google, err := oauthsvc.NewGoogleProvider(context.Background(), conf)
		if err != nil {
			logger.Error(fmt.Sprintf("google sign-in disabled: %v", err), err)
		} else {
			provider = google
		}
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			StudentSvc: usrSvc,
			Issuer:     issuer,
			DB:         dbm,
			OAuth:      provider,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
