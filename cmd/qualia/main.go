// Command qualia is the CLI front-end. It is a thin consumer of
// internal/database.Facade: every subcommand opens a database, calls
// the corresponding facade operation, and reports the result.
package main

import (
	"fmt"
	"os"

	"github.com/qualia-db/qualia/internal/autometa"
	"github.com/qualia-db/qualia/internal/fieldschema"
	"github.com/qualia-db/qualia/pkg/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	flagDBPath     string
	flagConfigPath string
	flagLogLevel   string
	flagLogDate    bool
)

func main() {
	autometa.Register("fsstat", autometa.FSStat{})
	autometa.Register("mime", autometa.MIME{})

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:           "qualia",
	Short:         "Content-addressed object and metadata store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db-path", defaultDBPath(), "path to the database directory or .qualia file")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", fieldschema.DefaultConfigPath(), "path to the field-schema config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "loglevel", "warn", "logging level: debug, info, warn, err, crit")
	rootCmd.PersistentFlags().BoolVar(&flagLogDate, "logdate", false, "prefix log messages with date and time")

	cobra.OnInitialize(func() {
		log.SetLogLevel(flagLogLevel)
		log.SetLogDateTime(flagLogDate)
	})

	rootCmd.AddCommand(
		addCmd, deleteCmd, editCmd, existsCmd,
		exportCmd, importCmd, findHashesCmd,
		searchCmd, setCmd, showCmd, tagCmd,
		undoCmd, logCmd, dumpCmd, fieldCmd,
	)
}

func defaultDBPath() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = home + "/.local/share"
	}
	return base + "/qualia"
}

// printError writes one stderr line, red when stderr is a terminal.
func printError(err error) {
	msg := fmt.Sprintf("qualia: %v\n", err)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		msg = "\x1b[31m" + msg + "\x1b[0m"
	}
	fmt.Fprint(os.Stderr, msg)
}

// exitCodeFor maps every facade error to a nonzero exit code; success is
// handled by Execute returning nil before main ever reaches here.
func exitCodeFor(err error) int {
	return 1
}
