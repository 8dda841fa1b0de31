// ssoctl manages the SSO bridge's persisted state: it bootstraps the schema,
// reads and rotates settings, and inspects provisioned users. Settings
// written here take effect on the next login without a restart.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jrsteele09/go-sso-bridge/internal/config"
	"github.com/jrsteele09/go-sso-bridge/internal/database"
	"github.com/jrsteele09/go-sso-bridge/settings"
	settingssql "github.com/jrsteele09/go-sso-bridge/settings/sqlrepo"
	"github.com/jrsteele09/go-sso-bridge/users"
	usersql "github.com/jrsteele09/go-sso-bridge/users/sqlrepo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const usage = `Usage: ssoctl [--database-driver DRIVER] [--database-url URL] COMMAND

Commands:
  migrate                              create the settings and users tables
  settings list                        print every setting
  settings get NAMESPACE KEY           print one setting value
  settings set NAMESPACE KEY VALUE     create or replace a setting
  users get USER_ID                    print a provisioned user

Database flags default to DATABASE_DRIVER and DATABASE_URL.
`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// dbConfig lets flags override the environment's database settings.
type dbConfig struct {
	driver string
	url    string
}

func (d dbConfig) GetDatabaseDriver() string { return d.driver }
func (d dbConfig) GetDatabaseURL() string    { return d.url }

func run(ctx context.Context, args []string, out io.Writer) error {
	var driver, url string

	flagSet := pflag.NewFlagSet("ssoctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(out)
	flagSet.StringVar(&driver, "database-driver", "", "database driver: sqlite or postgres")
	flagSet.StringVar(&url, "database-url", "", "database DSN or sqlite file path")
	flagSet.Usage = func() {
		fmt.Fprint(out, usage)
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return errors.New("a command is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db := dbConfig{driver: cfg.GetDatabaseDriver(), url: cfg.GetDatabaseURL()}
	if driver != "" {
		db.driver = driver
	}
	if url != "" {
		db.url = url
	}

	conn, err := database.Open(ctx, db)
	if err != nil {
		return err
	}
	defer conn.Close()

	return dispatch(ctx, conn, rest, out)
}

func dispatch(ctx context.Context, conn *sql.DB, args []string, out io.Writer) error {
	settingsRepo := settingssql.New(conn)
	userRepo := usersql.New(conn)
	if err := settingsRepo.Migrate(ctx); err != nil {
		return err
	}
	if err := userRepo.Migrate(ctx); err != nil {
		return err
	}

	switch command := args[0]; command {
	case "migrate":
		fmt.Fprintln(out, "schema is up to date")
		return nil
	case "settings":
		return settingsCommand(ctx, settingsRepo, args[1:], out)
	case "users":
		return usersCommand(ctx, userRepo, args[1:], out)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func settingsCommand(ctx context.Context, repo *settingssql.Repo, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("settings requires list, get or set")
	}

	switch sub := args[0]; sub {
	case "list":
		entries, err := repo.List(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, entries)
	case "get":
		if len(args) != 3 {
			return errors.New("usage: settings get NAMESPACE KEY")
		}
		value, err := repo.Get(ctx, args[1], args[2])
		if errors.Is(err, settings.ErrNotFound) {
			return fmt.Errorf("setting %s/%s is not set", args[1], args[2])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, value)
		return nil
	case "set":
		if len(args) != 4 {
			return errors.New("usage: settings set NAMESPACE KEY VALUE")
		}
		if err := repo.Put(ctx, args[1], args[2], args[3]); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s/%s updated\n", args[1], args[2])
		return nil
	default:
		return fmt.Errorf("unknown settings command %q", sub)
	}
}

func usersCommand(ctx context.Context, repo users.UserRepo, args []string, out io.Writer) error {
	if len(args) != 2 || args[0] != "get" {
		return errors.New("usage: users get USER_ID")
	}

	user, err := repo.GetByExternalID(ctx, args[1])
	if errors.Is(err, users.ErrNotFound) {
		return fmt.Errorf("user %s has not been provisioned", args[1])
	}
	if err != nil {
		return err
	}
	return printJSON(out, user)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
