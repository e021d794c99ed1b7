package main

import (
	"fmt"
	"os"

	"github.com/cezarmathe/horloge/internal/config"
	"github.com/cezarmathe/horloge/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "horloge:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfigWithEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(&logger.Config{
		Level:         cfg.Logger.Level,
		Format:        cfg.Logger.Format,
		Directory:     cfg.Logger.Directory,
		MaxSize:       cfg.Logger.MaxSize,
		MaxAge:        cfg.Logger.MaxAge,
		MaxBackups:    cfg.Logger.MaxBackups,
		EnableConsole: cfg.Logger.EnableConsole,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	cli := NewCLI(cfg)
	return cli.Execute(os.Args[1:])
}
