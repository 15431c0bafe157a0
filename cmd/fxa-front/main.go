package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fxawebapp/fxa-front/internal"
	"github.com/fxawebapp/fxa-front/internal/config"
	"github.com/fxawebapp/fxa-front/internal/log"
)

var BuildVersion = "dev"

func main() {
	conf := flag.String("config", "", "path to config file (optional, CONFIG_FILES is honored)")
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}

	var paths []string
	if *conf != "" {
		paths = append(paths, *conf)
	}

	cfg, err := config.Load(paths...)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting fxa-front", map[string]any{
		"version": BuildVersion,
		"addr":    cfg.Addr,
	})

	ctx := context.Background()
	front, err := internal.NewFxaFront(ctx, cfg)
	if err != nil {
		log.LogError("Failed to create content front: %v", err)
		os.Exit(1)
	}

	if err := front.Run(); err != nil {
		log.LogError("Server exited with error: %v", err)
		os.Exit(1)
	}
}
