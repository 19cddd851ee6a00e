package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"matchchat/internal/app"
	"matchchat/pkg/config"
	"matchchat/pkg/logger"
)

// version is set via ldflags during release builds.
var version = "dev"

func main() {
	_ = godotenv.Load(".env")

	addrFlag := flag.String("addr", "", "listen address (host:port), overrides config")
	dbFlag := flag.String("db", "", "pebble database path, overrides config")
	cfgFlag := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfgPath := *cfgFlag
	if cfgPath == "" {
		cfgPath = os.Getenv("MATCHCHAT_CONFIG")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// flags win over file and env
	if *addrFlag != "" {
		host, port, err := net.SplitHostPort(*addrFlag)
		if err != nil {
			log.Fatalf("invalid -addr %q: %v", *addrFlag, err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			log.Fatalf("invalid -addr port %q: %v", port, err)
		}
		cfg.Server.Address = host
		cfg.Server.Port = p
	}
	if *dbFlag != "" {
		cfg.Server.DBPath = *dbFlag
	}

	logger.Init(cfg.Logging.Level)
	defer logger.Sync()

	a, err := app.New(cfg, version)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
