package commands

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/balkashynov/taskdeck/internal/api"
	"github.com/balkashynov/taskdeck/internal/cache"
	"github.com/balkashynov/taskdeck/internal/config"
	"github.com/balkashynov/taskdeck/internal/db"
	"github.com/balkashynov/taskdeck/internal/repository"
	"github.com/balkashynov/taskdeck/internal/service"
	"github.com/balkashynov/taskdeck/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskdeck",
		Short: "A terminal client for your task service",
		Long: `taskdeck browses, creates, edits and deletes tasks on a remote task service.
Filters, sort order and the active user are remembered between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("api-url", "", "Task service base URL (overrides TASKDECK_API_URL)")
	rootCmd.PersistentFlags().String("user", "", "User id for this run only")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log requests, retries and cache refreshes to stderr")

	rootCmd.AddCommand(
		newListCmd(),
		newShowCmd(),
		newAddCmd(),
		newEditCmd(),
		newRemoveCmd(),
		newCalendarCmd(),
		newFiltersCmd(),
		newUserCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)
	rootCmd.SetHelpCommand(newHelpCmd())
	return rootCmd
}

// app holds everything a command needs, built once per invocation
type app struct {
	cfg    config.Config
	logger *log.Logger
	db     *gorm.DB
	client *api.Client
	svc    *service.TaskService
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.APIURL = v
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Debug = true
	}

	logger := log.New(io.Discard, "", 0)
	var dbLogger *log.Logger
	if cfg.Debug {
		logger = log.New(os.Stderr, "taskdeck: ", log.LstdFlags)
		dbLogger = logger
	}

	database, err := db.Open(cfg.DBPath, dbLogger)
	if err != nil {
		return nil, err
	}

	st := store.New(store.Options{
		Storage:       db.NewEntryStorage(database),
		DefaultUserID: cfg.UserID,
		Logger:        logger,
	})

	userID := st.UserID()
	if v, _ := cmd.Flags().GetString("user"); v != "" {
		userID = v
	}

	client, err := api.NewClient(api.Options{
		BaseURL:       cfg.APIURL,
		UserID:        userID,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		Timeout:       cfg.RequestTimeout,
		Logger:        logger,
	})
	if err != nil {
		_ = db.Close(database)
		return nil, err
	}

	svc := service.NewTaskService(service.Deps{
		Repo:     repository.NewTaskRepository(client),
		Cache:    cache.New(cache.WithStaleTime(cfg.StaleTime), cache.WithLogger(logger)),
		Store:    st,
		Identity: client,
		Logger:   logger,
	})

	logger.Printf("ready api_url=%s user_id=%s db=%s", cfg.APIURL, userID, cfg.DBPath)
	return &app{cfg: cfg, logger: logger, db: database, client: client, svc: svc}, nil
}

func (a *app) Close() {
	if err := db.Close(a.db); err != nil {
		a.logger.Printf("close db failed err=%v", err)
	}
}

// context bounds one command's requests by the configured timeout
func (a *app) context(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if a.cfg.RequestTimeout <= 0 {
		return context.WithCancel(parent)
	}
	// ListAllTasks may walk several pages, each bounded by the HTTP timeout
	return context.WithTimeout(parent, 4*a.cfg.RequestTimeout)
}

// withApp wraps a command function to build the app first
func withApp(fn func(*cobra.Command, []string, *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskdeck %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
