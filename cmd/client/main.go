package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/Evermishka/notes-app/internal/client/cli"
	"github.com/Evermishka/notes-app/internal/client/config"
	"github.com/Evermishka/notes-app/internal/logging"
)

func main() {
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(context.Background())
}
