package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-sso-bridge/internal/config"
	"github.com/jrsteele09/go-sso-bridge/internal/database"
	"github.com/jrsteele09/go-sso-bridge/internal/logging"
	"github.com/jrsteele09/go-sso-bridge/provider"
	"github.com/jrsteele09/go-sso-bridge/server"
	settingssql "github.com/jrsteele09/go-sso-bridge/settings/sqlrepo"
	"github.com/jrsteele09/go-sso-bridge/sso"
	usersql "github.com/jrsteele09/go-sso-bridge/users/sqlrepo"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("recovered from panic: %v", r)
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	if c.GetJWTSecret() == "" {
		log.Warn().Msg("JWT_SECRET is not set; every login will fail with a configuration error")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	settingsRepo := settingssql.New(db)
	userRepo := usersql.New(db)
	if err := settingsRepo.Migrate(ctx); err != nil {
		return err
	}
	if err := userRepo.Migrate(ctx); err != nil {
		return err
	}

	bridge := sso.New(c.GetJWTSecret(), settingsRepo, userRepo, provider.NewClient(c.GetProviderTimeout()))
	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           server.New(c, bridge),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
