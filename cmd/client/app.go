package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/atinyakov/CampusPortal/internal/client/apiclient"
	"github.com/atinyakov/CampusPortal/internal/client/credstore"
	"github.com/atinyakov/CampusPortal/internal/client/guard"
	"github.com/atinyakov/CampusPortal/internal/client/portal"
	"github.com/atinyakov/CampusPortal/internal/client/session"
	"github.com/atinyakov/CampusPortal/internal/config"
	"github.com/atinyakov/CampusPortal/internal/logger"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	apiURL     string
	stateDir   string
	logLevel   string
	verbose    bool
	ephemeral  bool
}

// app is the wired client: one credential store, one HTTP client and one
// session store for the whole process.
type app struct {
	opts     *config.ClientOptions
	log      *logger.Logger
	creds    credstore.Store
	client   *apiclient.Client
	session  *session.Store
	guard    *guard.Guard
	services *portal.Services
	dispose  func()
}

// bootstrap loads configuration, builds the HTTP stack and restores the
// persisted session. The returned app must be closed.
func bootstrap(ctx context.Context, f *globalFlags) (*app, error) {
	opts, err := config.LoadClient(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if f.apiURL != "" {
		opts.APIURL = f.apiURL
	}
	if f.stateDir != "" {
		opts.StateDir = f.stateDir
	}
	if f.logLevel != "" {
		opts.LogLevel = f.logLevel
	}

	log := logger.New()
	if err := initLogger(log, opts, f.verbose); err != nil {
		return nil, err
	}

	var creds credstore.Store = credstore.NewFileStore(opts.CredentialsPath())
	if f.ephemeral {
		creds = credstore.NewMemory("")
	}

	client, err := apiclient.New(apiclient.Options{
		BaseURL: opts.APIURL,
		Creds:   creds,
		Log:     log.Log.Named("api"),
		Timeout: opts.Timeout,
		CAFile:  opts.CAFile,
	})
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}

	sess := session.New(session.NewHTTPAPI(client), creds, log.Log.Named("session"))
	a := &app{
		opts:     opts,
		log:      log,
		creds:    creds,
		client:   client,
		session:  sess,
		guard:    guard.New(sess, nil),
		services: portal.New(client),
		dispose:  client.Install(sess.HandleUnauthorized),
	}

	log.Log.Info("portal client starting",
		zap.String("api", opts.APIURL),
		zap.String("version", versionString()),
	)
	sess.Restore(ctx)
	return a, nil
}

// initLogger sends logs to the state directory so they never interleave
// with the shell, or to stderr in verbose mode.
func initLogger(log *logger.Logger, opts *config.ClientOptions, verbose bool) error {
	if verbose {
		return log.Init(opts.LogLevel, "stderr")
	}
	if err := os.MkdirAll(opts.StateDir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return log.Init(opts.LogLevel, opts.LogPath())
}

func (a *app) Close() {
	a.dispose()
	_ = a.log.Log.Sync()
}

func versionString() string {
	if version == "" {
		return "N/A"
	}
	return version
}

func printVersion(w io.Writer) {
	date := buildDate
	if date == "" {
		date = "N/A"
	}
	fmt.Fprintf(w, "Campus Portal Client\nVersion: %s\nBuild Date: %s\n", versionString(), date)
}
