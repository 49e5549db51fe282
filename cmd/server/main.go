package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mnohosten/storagecore/pkg/server"
	"github.com/mnohosten/storagecore/pkg/storage"
)

func main() {
	host := flag.String("host", "localhost", "Debug server host address")
	port := flag.Int("port", 8080, "Debug server port")
	dbFile := flag.String("database-filename", "./storagecore.db", "Path to the backing database file")
	poolSize := flag.Int("pool-size", 1000, "Buffer pool size in frames (1 frame = 4KB)")
	k := flag.Int("k", 2, "LRU-K history depth")
	initialCapacity := flag.Int("initial-page-capacity", 32, "Initial database file capacity in pages")
	flag.Parse()

	storageConfig := storage.DefaultConfig(*dbFile)
	storageConfig.PoolSize = *poolSize
	storageConfig.K = *k
	storageConfig.InitialPageCapacity = *initialCapacity

	engine, err := storage.Open(storageConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open storage engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	serverConfig := server.DefaultConfig()
	serverConfig.Host = *host
	serverConfig.Port = *port

	srv, err := server.New(serverConfig, engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create debug server: %v\n", err)
		os.Exit(1)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), serverConfig.WriteTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "debug server error: %v\n", err)
		os.Exit(1)
	}
}
