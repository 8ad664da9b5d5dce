package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confradar/core/conference"
	"github.com/trezcool/confradar/core/wizard"
	"github.com/trezcool/confradar/storage/database/inmem"
)

var now = time.Date(2030, 1, 15, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &commandLine{
		repo:    inmemdb.NewSessionRepository(inmemdb.Open()),
		out:     &out,
		nowFunc: func() time.Time { return now },
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runTests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var gotDir string
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		gotDir = dir
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runTests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "sponsor_tiers", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})
	assert.Equal(t, "migrations", gotDir)
}

func saveSession(t *testing.T, repo wizard.Repository, id, owner string, updatedAt time.Time) {
	t.Helper()
	err := repo.Save(context.Background(), wizard.Snapshot{
		ID:          id,
		Owner:       owner,
		Mode:        wizard.ModeCreate,
		Type:        conference.TypePaid,
		CurrentStep: 1,
		MaxStep:     6,
		CreatedAt:   updatedAt,
		UpdatedAt:   updatedAt,
	})
	require.NoError(t, err)
}

func Test_commandLine_sessions(t *testing.T) {
	cli, out := setup(t)
	saveSession(t, cli.repo, "fresh", "alice", now.Add(-time.Hour))
	saveSession(t, cli.repo, "stale", "", now.Add(-48*time.Hour))

	runTests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"sessions"}, wantErr: errHelp},
		{name: "bad idle", args: []string{"sessions", "purge", "--idle", "0s"}, wantErrStr: "--idle must be positive (got 0s)"},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "sessions", "list"}))
	listed := out.String()
	assert.Contains(t, listed, "fresh")
	assert.Contains(t, listed, "alice")
	assert.Contains(t, listed, "stale")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("fresh")), bytes.Index(out.Bytes(), []byte("stale")), "most recent first")

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "sessions", "purge", "--idle", "24h"}))
	assert.Equal(t, "1 session(s) purged\n", out.String())

	snaps, err := cli.repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "fresh", snaps[0].ID)
}
