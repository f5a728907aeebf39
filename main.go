package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgerbot/pkg/bot"
	"ledgerbot/pkg/bot/telegramadapter"
	"ledgerbot/pkg/config"
	"ledgerbot/pkg/fsm"
	"ledgerbot/pkg/ingestion"
	"ledgerbot/pkg/journal"
	"ledgerbot/pkg/masterdata"
	"ledgerbot/pkg/server"
	"ledgerbot/pkg/state"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Panicf("Failed to load .env: %v", err)
	}

	if err := config.LoadConfig(config.ConfigPath()); err != nil {
		log.Panicf("Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	loadedConfig := config.GetConfig()

	botToken, err := config.TelegramToken()
	if err != nil {
		log.Panic(err)
	}

	ingestionClient, err := ingestion.NewClient(loadedConfig.Backend, nil)
	if err != nil {
		log.Panicf("Failed to create ingestion client: %v", err)
	}

	cache := masterdata.NewCache(ingestionClient)
	stateStore := state.NewStore(fsm.NewFSMCreator())

	var (
		outcomeRecorder fsm.OutcomeRecorder
		outcomeLister   server.OutcomeLister
	)
	if loadedConfig.Journal.DSN != "" {
		j, err := journal.Open(loadedConfig.Journal.DSN)
		if err != nil {
			log.Panicf("Failed to open journal: %v", err)
		}
		defer j.Close()
		outcomeRecorder, outcomeLister = j, j
	} else {
		log.Println("Journal disabled (no JOURNAL_DSN).")
	}

	botClient, err := bot.NewClient(botToken)
	if err != nil {
		log.Panicf("Failed to initialize bot client: %v", err)
	}

	botPort, err := telegramadapter.New(botClient, log.Default())
	if err != nil {
		log.Panicf("Failed to create telegram adapter: %v", err)
	}

	engine, err := fsm.NewEngine(fsm.EngineDeps{
		Config:     loadedConfig,
		Store:      stateStore,
		MasterData: cache,
		Submitter:  ingestionClient,
		Bot:        botPort,
		Journal:    outcomeRecorder,
	})
	if err != nil {
		log.Panicf("Failed to create conversation engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Warm the cache; a failure here is retried by the first trigger.
	_ = cache.Refresh(ctx)

	// Handlers outlive the polling context so queued messages finish during shutdown.
	workCtx, stopWork := context.WithCancel(context.Background())
	defer stopWork()
	dispatcher := fsm.NewDispatcher(workCtx, engine.HandleMessage)

	opsServer := server.New(loadedConfig.Ops.Addr, server.NewRouter(cache, stateStore, outcomeLister))
	go func() {
		if err := opsServer.Run(); err != nil {
			log.Printf("Ops server stopped: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("Shutdown signal received...")
		cancel()
	}()

	updates := botClient.GetUpdatesChan(60)
	log.Println("Starting update processing...")

	for {
		select {
		case update := <-updates:
			if update.UpdateID == 0 {
				continue
			}
			senderID, text, ok := telegramadapter.InboundText(update)
			if !ok {
				continue
			}
			if err := dispatcher.Dispatch(senderID, text); err != nil {
				log.Printf("Dropping message from %s: %v", senderID, err)
			}
		case <-ctx.Done():
			log.Println("Stopping update processing loop...")
			botClient.StopReceivingUpdates()

			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			if err := opsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Ops server shutdown error: %v", err)
			}
			stop()

			drainCtx, stopDrain := context.WithTimeout(context.Background(), 30*time.Second)
			if err := dispatcher.Close(drainCtx); err != nil {
				log.Printf("Dispatcher drain interrupted: %v", err)
			}
			stopDrain()
			stopWork()
			return
		}
	}
}
