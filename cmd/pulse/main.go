package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tmater/pulse/internal/client"
	"github.com/tmater/pulse/internal/dashboard"
	"github.com/tmater/pulse/internal/proto"
	"github.com/tmater/pulse/internal/request"
	"github.com/tmater/pulse/internal/result"
)

func main() {
	defaults := request.DefaultOptions()

	serverURL := flag.String("server", "http://localhost:8080", "pulse-api URL")
	checks := flag.String("checks", "dns,tcp,http", "comma-separated checks to run")
	port := flag.String("port", defaults.Port, "port for the tcp check")
	method := flag.String("method", defaults.Method, "method for the http check")
	followRedirects := flag.Bool("follow-redirects", defaults.FollowRedirects, "follow redirects in the http check")
	timeoutMS := flag.String("timeout-ms", defaults.TimeoutMS, "http check timeout in milliseconds")
	verbose := flag.Bool("v", false, "log requests to stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: pulse [flags] <host or url>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	c := dashboard.New(client.New(strings.TrimRight(*serverURL, "/")+"/api/lookup", &http.Client{Timeout: 30 * time.Second}))
	c.Query = strings.Join(flag.Args(), " ")
	c.Selection = parseChecks(*checks)
	c.Options = request.Options{
		Port:            *port,
		Method:          *method,
		FollowRedirects: *followRedirects,
		TimeoutMS:       *timeoutMS,
	}

	in, err := c.Submit(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse: %s\n", err)
		os.Exit(2)
	}

	if err := dashboard.Render(os.Stdout, in); err != nil {
		fmt.Fprintf(os.Stderr, "pulse: %s\n", err)
		os.Exit(1)
	}
	if in.Overall == result.Fail {
		os.Exit(1)
	}
}

func parseChecks(s string) []proto.CheckKind {
	var kinds []proto.CheckKind
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			kinds = append(kinds, proto.CheckKind(strings.ToLower(part)))
		}
	}
	return kinds
}
