package main

import (
	"database/sql"

	"github.com/trezcool/goose"

	"github.com/trezcool/confradar/fs"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	var db *sql.DB
	if cli.db != nil {
		db = cli.db.DB
	}

	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], db, appfs.FS, "migrations", arguments...)
}
