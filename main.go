package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides config and PORT)")
	configPath := flag.String("config", "", "Path to YAML config file")
	dbPath := flag.String("db", "", "Path to SQLite score database (empty = in-memory ledger only)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.ListenAddr = ":" + port
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	var db *DB
	if cfg.DatabasePath != "" {
		db, err = OpenDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
		log.Printf("score ledger backed by %s", cfg.DatabasePath)
	}

	hub := NewHub(NewLedger(db), cfg)
	go hub.Run()
	hub.StartJanitor()

	mux := SetupRoutes(hub)
	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("session server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	hub.Stop()
	server.Close()
}
