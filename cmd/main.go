package main

import (
	"flag"
	"log"
	"os"

	"schema_spider/internal/app"
	"schema_spider/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	check := flag.Bool("check", false, "load the config and item schemas, then exit")
	validateType := flag.String("validate", "", "validate a JSON lines feed against this item type and exit")
	feedPath := flag.String("feed", "", "feed file for -validate (default stdin)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configPath, err)
	}

	if *check || *validateType != "" {
		registry, err := app.LoadRegistry(cfg)
		if err != nil {
			log.Fatalf("Invalid item definitions: %v", err)
		}
		if *validateType == "" {
			log.Printf("Config OK, item types: %v", registry.Names())
			return
		}

		input := os.Stdin
		if *feedPath != "" {
			f, err := os.Open(*feedPath)
			if err != nil {
				log.Fatalf("Failed to open feed: %v", err)
			}
			defer f.Close()
			input = f
		}
		result, err := app.ValidateFeed(registry, *validateType, input)
		if err != nil {
			log.Fatalf("Validation failed: %v", err)
		}
		log.Printf("%d valid, %d invalid records", result.Valid, result.Invalid)
		if result.Invalid > 0 {
			os.Exit(1)
		}
		return
	}

	spiderApp, err := app.NewSpiderApp(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	if err := spiderApp.Run(); err != nil {
		log.Fatalf("Spider finished with error: %v", err)
	}

	log.Println("Spider finished")
}
