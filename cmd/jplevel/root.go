package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/japaniel/jplevel/pkg/db"
	"github.com/japaniel/jplevel/pkg/level"
	"github.com/japaniel/jplevel/pkg/wanikani"
)

// ErrNotImplemented is returned by reference systems that are not supported yet.
var ErrNotImplemented = errors.New("not implemented")

// app carries configuration shared by all subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: log.New(os.Stderr, "", log.LstdFlags)}

	root := &cobra.Command{
		Use:   "jplevel",
		Short: "Japanese text difficulty analysis tool",
		Long: `jplevel estimates how far into the WaniKani curriculum a reader must be
to recognise 80, 90, 95 and 100 percent of the kanji and vocabulary in a text.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.jplevel.yaml)")
	flags.String("kanji", "files/kanjis_wanikani_levels.json", "path to the kanji reference JSON")
	flags.String("vocab", "files/vocabs_wanikani_levels.json", "path to the vocabulary reference JSON")
	flags.Bool("strict", false, "reject reference data that lists an item under several levels")
	flags.String("db", "jplevel.db", "path to the SQLite history database")
	flags.Bool("debug", false, "print timing and diagnostics")

	a.v.BindPFlag("debug", flags.Lookup("debug"))
	a.v.BindPFlag("reference.kanji", flags.Lookup("kanji"))
	a.v.BindPFlag("reference.vocab", flags.Lookup("vocab"))
	a.v.BindPFlag("reference.strict", flags.Lookup("strict"))
	a.v.BindPFlag("db", flags.Lookup("db"))

	a.v.SetDefault("server.addr", ":8000")
	a.v.SetDefault("server.origins", []string{"http://localhost:5173"})
	a.v.SetDefault("workers", 4)

	root.AddCommand(newWKCmd(a), newJLPTCmd(), newServeCmd(a), newHistoryCmd(a))
	return root
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".jplevel")
	}

	a.v.SetEnvPrefix("jplevel")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// loadAnalyzer loads the reference data, downloading it first when a
// download URL is configured and the file is missing.
func (a *app) loadAnalyzer(ctx context.Context) (*level.Analyzer, error) {
	kanjiPath := a.v.GetString("reference.kanji")
	vocabPath := a.v.GetString("reference.vocab")

	client := &http.Client{Timeout: 30 * time.Second}
	if err := wanikani.EnsureFile(ctx, client, kanjiPath, a.v.GetString("reference.kanji_url")); err != nil {
		return nil, err
	}
	if err := wanikani.EnsureFile(ctx, client, vocabPath, a.v.GetString("reference.vocab_url")); err != nil {
		return nil, err
	}

	policy := wanikani.KeepLowest
	if a.v.GetBool("reference.strict") {
		policy = wanikani.RejectDuplicates
	}
	start := time.Now()
	ref, err := wanikani.Load(kanjiPath, vocabPath, wanikani.WithPolicy(policy))
	if err != nil {
		return nil, err
	}
	if n := len(ref.Duplicates); n > 0 {
		a.logger.Printf("Warning: %d reference items appear under several levels; keeping the lowest", n)
	}
	if a.v.GetBool("debug") {
		a.logger.Printf("Reference loaded (%d kanji, %d vocab) in %v", len(ref.Kanji), len(ref.Vocab), time.Since(start))
	}
	return level.NewAnalyzer(ref), nil
}

func (a *app) openDB() (*sql.DB, error) {
	path := a.v.GetString("db")
	conn, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return conn, nil
}

func newJLPTCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jlpt",
		Short: "JLPT-based analysis (not available)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("jlpt system: %w", ErrNotImplemented)
		},
	}
}
