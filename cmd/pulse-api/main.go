package main

import (
	"flag"
	"log"
	"net"
	"net/http"

	"github.com/tmater/pulse/internal/check"
	"github.com/tmater/pulse/internal/config"
	"github.com/tmater/pulse/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	flag.Parse()

	log.Println("pulse-api starting")

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %s", err)
		}
	}

	var resolver check.Resolver = net.DefaultResolver
	if cfg.Resolver != "" {
		log.Printf("using nameserver %s for dns checks", cfg.Resolver)
		resolver = check.NewDNSClient(cfg.Resolver, cfg.Timeouts.DNS)
	}

	h := server.New(cfg, resolver)

	log.Printf("listening on %s", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, h.Routes()); err != nil {
		log.Fatalf("server error: %s", err)
	}
}
