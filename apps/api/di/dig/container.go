package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/confradar/apps/api/echo"
	"github.com/trezcool/confradar/core"
	"github.com/trezcool/confradar/core/conference"
	"github.com/trezcool/confradar/core/wizard"
	"github.com/trezcool/confradar/services/confapi"
	emailsvc "github.com/trezcool/confradar/services/email"
	logsvc "github.com/trezcool/confradar/services/logger"
	"github.com/trezcool/confradar/storage/database"
	inmemdb "github.com/trezcool/confradar/storage/database/inmem"
	sqlxrepos "github.com/trezcool/confradar/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	WizardSvc  *wizard.Service
	References echoapi.References
	Validator  *conference.Validator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newDB returns nil when sessions are kept in memory.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	if conf.Database.InMemory() {
		return nil
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newSessionRepository(db *sqlx.DB) wizard.Repository {
	if db == nil {
		return inmemdb.NewSessionRepository(inmemdb.Open())
	}
	return sqlxrepos.NewSessionRepository(db)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		WizardSvc:  p.WizardSvc,
		References: p.References,
		Validator:  p.Validator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newSessionRepository))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(conference.NewValidator))
	must(c.Provide(confapi.NewClient))
	must(c.Provide(func(client *confapi.Client) wizard.Backend { return client }))
	must(c.Provide(confapi.NewReferenceSource))
	must(c.Provide(func(src *confapi.ReferenceSource) echoapi.References { return src }))
	must(c.Provide(wizard.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
