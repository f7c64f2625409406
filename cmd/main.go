package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"roomchat/auth"
	"roomchat/gateway"
	"roomchat/internal"
	"roomchat/moderation"
	"roomchat/observability"
	"roomchat/repositories"
	"roomchat/runtime"
	"roomchat/runtime/workers"
	"roomchat/services"
	"syscall"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanups execute before the process exits.
func run() error {
	config, err := internal.LoadConfig(".env")
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	users, err := repositories.NewUserRepository(db, log)
	if err != nil {
		return err
	}
	defer users.Close()
	rooms, err := repositories.NewRoomRepository(db, log)
	if err != nil {
		return err
	}
	defer rooms.Close()
	messages, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return err
	}
	defer messages.Close()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = writer.Close()
	}()
	index := repositories.NewMessageIndex(writer, log, config.SearchPageSize)
	if indexed, err := index.RebuildIfEmpty(db); err != nil {
		return fmt.Errorf("search index rebuild failed: %w", err)
	} else if indexed > 0 {
		log.Info("Search index rebuilt", "messages", indexed)
	}

	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(log, registry, config.SinkTimeout)
	filter, err := moderation.NewFilter(config.CensoredWords, rune(config.CensorCharacter))
	if err != nil {
		return fmt.Errorf("moderation filter: %w", err)
	}
	chat := services.NewChatService(log, users, rooms, messages, index, registry, broadcaster, runtime.NewRoomLocks(),
		services.ChatConfig{HistoryLimit: config.HistoryLimit, MaxContentLength: config.MaxContentLength}).
		WithFilter(filter)

	tokens := auth.NewTokens(config.AuthSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(users, tokens, log)

	ws := gateway.NewWebSocketHandler(log, chat, authService, config.ConnectionBufferSize)
	router := gateway.NewRouter(log, chat, authService, tokens, ws)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting roomchat", "http", config.HTTPAddress(), "health", config.HealthAddress())
	workers.NewSupervisor(log, config.RestartInterval).
		Add(
			gateway.NewHTTPServer(log, config.HTTPAddress(), router),
			gateway.NewHealthServer(log, config.HealthAddress()),
			observability.NewMonitor(log, registry, config.StatsInterval),
		).
		Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
