package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/user"
	logsvc "github.com/trezcool/kusoma/services/logger"
	"github.com/trezcool/kusoma/storage/database"
	mongorepos "github.com/trezcool/kusoma/storage/database/mongodb"
)

func main() {
	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		std.Fatal(err)
	}
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(false)

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.ConnectTimeout)
	dbm := database.NewManager(conf.Database, logger)
	if _, err = dbm.Client(ctx); err != nil {
		cancel()
		logger.Fatal("connecting to database", err)
	}
	cancel()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		usrSvc:   user.NewService(mongorepos.NewUserRepository(dbm)),
		validate: validate,
		out:      os.Stdout,
	}
	code := 0
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		code = 1
	}
	if err = dbm.Close(context.Background()); err != nil {
		std.Printf("closing database: %v", err)
	}
	os.Exit(code)
}
