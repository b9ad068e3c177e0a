// agendabot is the webhook backend for a scheduling chat agent: it
// looks users up in a Google Sheet, edits their profile columns, and
// turns free-text pt-BR instructions into Google Calendar events.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"

	"github.com/agendabot/agendabot/internal/config"
	"github.com/agendabot/agendabot/internal/gcal"
	"github.com/agendabot/agendabot/internal/googleauth"
	"github.com/agendabot/agendabot/internal/gsheets"
	"github.com/agendabot/agendabot/internal/webhook"
)

const shutdownTimeout = 15 * time.Second

func printHelp() {
	fmt.Fprintf(os.Stderr, `agendabot: chat-agent webhook backend

USAGE:
    %s [OPTIONS]

OPTIONS:
    -h, --help              Show this help message and exit
    --config FILE           Path to JSON config file (optional)
    --addr ADDR             Listen address (default ":8080")
    --spreadsheet-id ID     Google Sheets spreadsheet ID
    --sheet-name NAME       Sheet tab holding the user rows (default "Users")
    --calendar-id ID        Default Google Calendar ID for created events
    --timezone TZ           IANA timezone for parsing and display
                            (default "America/Sao_Paulo")

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables (a .env file is loaded if present)
    3. Config file (--config)
    4. Defaults

ENVIRONMENT VARIABLES:
    APP_ADDR                 Listen address
    APP_ENV                  "production" switches logging to JSON
    WEBHOOK_TOKEN            Bearer token required on /webhook routes
    SPREADSHEET_ID           Google Sheets spreadsheet ID
    SHEET_NAME               Sheet tab holding the user rows
    CALENDAR_ID_DEFAULT      Default Google Calendar ID
    CALENDAR_TZ              IANA timezone
    GOOGLE_CLIENT_EMAIL      Service account email
    GOOGLE_PRIVATE_KEY       Service account private key (\n-escaped)
    GOOGLE_CREDENTIALS_PATH  OAuth credentials JSON (when not using a
                             service account)
    GOOGLE_TOKEN_PATH        Where to cache the OAuth token

`, os.Args[0])
}

func newLogger(env string) *logrus.Logger {
	log := logrus.New()
	if env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{})
	}
	return log
}

// googleHTTPClient picks the credential flow: a service account when
// GOOGLE_CLIENT_EMAIL/GOOGLE_PRIVATE_KEY are set, otherwise the
// interactive OAuth flow with a token cached on disk.
func googleHTTPClient(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	if cfg.UsesServiceAccount() {
		return googleauth.ServiceAccountClient(ctx, cfg.GoogleClientEmail, cfg.GooglePrivateKey)
	}

	oauthCfg, err := googleauth.OAuthConfigFromFile(cfg.GoogleCredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth credentials: %w", err)
	}

	store := googleauth.NewFileTokenStore(cfg.GoogleTokenPath)
	return googleauth.OAuthClient(ctx, oauthCfg, store, os.Stdin)
}

func main() {
	helpFlag := flag.Bool("help", false, "Show help message")
	helpFlagShort := flag.Bool("h", false, "Show help message (shorthand)")

	var flags config.Flags
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to JSON config file (optional)")
	flag.StringVar(&flags.Addr, "addr", "", "Listen address")
	flag.StringVar(&flags.SpreadsheetID, "spreadsheet-id", "", "Google Sheets spreadsheet ID")
	flag.StringVar(&flags.SheetName, "sheet-name", "", "Sheet tab holding the user rows")
	flag.StringVar(&flags.CalendarID, "calendar-id", "", "Default Google Calendar ID")
	flag.StringVar(&flags.Timezone, "timezone", "", "IANA timezone")
	flag.Parse()

	if *helpFlag || *helpFlagShort {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Env)

	ctx := context.Background()

	httpClient, err := googleHTTPClient(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to authenticate with Google")
	}

	sheetsClient, err := gsheets.NewClient(ctx, httpClient)
	if err != nil {
		log.WithError(err).Fatal("failed to create the Sheets client")
	}

	calendarClient, err := gcal.NewClient(ctx, httpClient)
	if err != nil {
		log.WithError(err).Fatal("failed to create the Calendar client")
	}

	srv := webhook.NewServer(cfg, log, sheetsClient, calendarClient)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Router(),
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down, waiting for in-flight requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}

	log.Info("server exited")
}
