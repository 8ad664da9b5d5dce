package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/trezcool/confradar/core"
	logsvc "github.com/trezcool/confradar/services/logger"
	"github.com/trezcool/confradar/storage/database"
	sqlxrepos "github.com/trezcool/confradar/storage/database/sqlx"
)

func main() {
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		stdLogger.Fatal(err)
	}
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	if conf.Database.InMemory() {
		logger.Fatal("no database configured: sessions are kept in memory by the API")
	}

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:      db,
		repo:    sqlxrepos.NewSessionRepository(db),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
