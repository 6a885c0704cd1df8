// catalogtree serves and inspects paginated category trees
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nainya/catalogtree/internal/config"
	"github.com/nainya/catalogtree/internal/logger"
	"github.com/nainya/catalogtree/pkg/catalog"
	"github.com/nainya/catalogtree/pkg/sqlsource"
)

var (
	configPath string
	v          = config.New()
)

var rootCmd = &cobra.Command{
	Use:           "catalogtree",
	Short:         "Serve and inspect paginated category trees",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (yaml, json, toml or env)")
	pf.String("driver", "sqlite", "database driver: sqlite or postgres")
	pf.String("db", "catalogtree.db", "database DSN or SQLite file path")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.Bool("log-pretty", false, "human-readable console logs")
	pf.Int("max-depth", 0, "cap hierarchy traversal rounds (0 = unlimited)")

	mustBind(v, "database.driver", pf.Lookup("driver"))
	mustBind(v, "database.dsn", pf.Lookup("db"))
	mustBind(v, "log.level", pf.Lookup("log-level"))
	mustBind(v, "log.pretty", pf.Lookup("log-pretty"))
	mustBind(v, "tree.max_depth", pf.Lookup("max-depth"))

	rootCmd.AddCommand(serveCmd, treeCmd, migrateCmd, seedCmd)
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs.
type app struct {
	cfg     config.Config
	log     *logger.Logger
	db      *sql.DB
	dialect sqlsource.Dialect
	store   *catalog.Store
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, err
	}
	log := logger.NewLogger(cfg.Log)

	dialect, err := sqlsource.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sqlsource.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	log.Debug("database opened").
		Str("driver", dialect.String()).
		Msg("row source ready")

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		dialect: dialect,
		store:   catalog.NewStore(db, dialect),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) service(srcOpts ...sqlsource.Option) *catalog.Service {
	return catalog.NewService(a.store, catalog.Options{
		MaxDepth:    a.cfg.Tree.MaxDepth,
		BatchSize:   a.cfg.Tree.BatchSize,
		Concurrency: a.cfg.Tree.BatchConcurrency,
		Observer:    logger.NewTreeObserver(a.log),
		Rounds:      logger.NewTreeObserver(a.log),
		Logger:      a.log.TreeLogger("paginate").Zerolog(),
	}, srcOpts...)
}
