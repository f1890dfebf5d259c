package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_pos/internal/config"
	"github.com/fjod/go_pos/internal/consumer"
	"github.com/fjod/go_pos/internal/ticket"
	"github.com/fjod/go_pos/pkg/logger"
)

func main() {
	log.Println("ticket-printer starting...")
	var wg sync.WaitGroup

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required")
	}

	logr := logger.New("ticket-printer", logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	var sink ticket.Sink = &ticket.StreamSink{W: os.Stdout}
	if cfg.TicketDir != "" {
		sink = ticket.DirSink{Dir: cfg.TicketDir}
		log.Printf("Writing tickets to %s", cfg.TicketDir)
	}

	ticketConsumer := consumer.NewTicketConsumer(cfg.ReceiptTopic, cfg.TicketGroupID, sink, ticket.DefaultOptions(), logr, cfg.KafkaBrokers...)
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticketConsumer.Run(consumerCtx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down ticket printer...")
	consumerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Println("Consumer stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("Timed out waiting for consumer to stop")
	}

	ticketConsumer.Close()
	log.Println("ticket-printer exited")
}
