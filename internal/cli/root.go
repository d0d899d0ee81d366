package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/app"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/config"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/logger"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/httpclient"
)

// Session holds the state shared by one command invocation. Config and the
// runtime are built lazily, after the persistent flags are parsed.
type Session struct {
	JSONOutput bool
	EnvFiles   []string
	LogLevel   string

	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	cfg *config.Config
	log logger.Logger
	app *app.App
}

// NewSession creates a session writing data to stdout and messages to stderr.
func NewSession(stdout, stderr io.Writer) *Session {
	return &Session{stdout: stdout, stderr: stderr, now: time.Now}
}

// Config loads configuration and initializes logging on first use.
func (s *Session) Config() (*config.Config, error) {
	if s.cfg != nil {
		return s.cfg, nil
	}
	cfg, err := config.Load(s.EnvFiles...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl := strings.TrimSpace(s.LogLevel); lvl != "" {
		cfg.LogLevel = strings.ToLower(lvl)
	}
	log, err := logger.Init(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.DebugObj("configuration loaded", "config", cfg.Redacted())
	s.cfg = cfg
	s.log = log
	return cfg, nil
}

// Logger returns the session logger, or a no-op logger before Config ran.
func (s *Session) Logger() logger.Logger {
	return logger.Ensure(s.log)
}

// App builds the provisioning runtime on first use.
func (s *Session) App() (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, s.log)
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

// Output returns a formatter honoring --json.
func (s *Session) Output() *Output {
	return NewOutput(s.JSONOutput, s.stdout, s.stderr)
}

// ReportError prints err to stderr. With --json it also writes the error to
// stdout, including the status and parsed body of a failed API call.
func (s *Session) ReportError(err error) {
	if err == nil {
		return
	}
	out := s.Output()
	out.Error(err.Error())
	if !out.JSONMode() {
		return
	}

	report := map[string]any{"error": err.Error()}
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		report["status"] = httpErr.StatusCode
		if body := httpErr.JSON(); body != nil {
			report["response"] = body
		}
	}
	out.JSON(report)
}

// Close releases the runtime and flushes the logger.
func (s *Session) Close() error {
	var err error
	if s.app != nil {
		err = s.app.Close()
		s.app = nil
	}
	if s.cfg != nil {
		_ = logger.Close()
	}
	return err
}

// NewRootCmd builds the epilot command tree bound to s.
func NewRootCmd(s *Session, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "epilot",
		Short:         "Provision and manage epilot tenant configuration",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(s.stdout)
	rootCmd.SetErr(s.stderr)

	rootCmd.PersistentFlags().BoolVar(&s.JSONOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringSliceVar(&s.EnvFiles, "env-file", nil, "Env file(s) to load (default .env and configs/.env)")
	rootCmd.PersistentFlags().StringVar(&s.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(
		newCheckCmd(s),
		newAPIsCmd(s),
		newServicesCmd(s),
		newEntityCmd(s),
		newContactsCmd(s),
		newExportCmd(s),
		newWorkflowCmd(s),
		newAutomationCmd(s),
		newJourneyCmd(s),
		newDesignCmd(s),
		newSeedCmd(s),
	)
	return rootCmd
}
