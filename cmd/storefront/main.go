package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/calicocommerce/storefront/internal/cart"
	"github.com/calicocommerce/storefront/internal/catalog"
	"github.com/calicocommerce/storefront/internal/eventbus"
	"github.com/calicocommerce/storefront/internal/otel"
	"github.com/calicocommerce/storefront/internal/server"
	"github.com/calicocommerce/storefront/internal/storefront"
)

const rootUsage = `storefront: progressive product pages over a commerce provider

USAGE:
  storefront <command> [flags]

COMMANDS:
  serve            Run the HTTP storefront
  check-queries    Re-parse every provider query document and report
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -server.addr <addr>              HTTP listen address (default: :8000)
  -server.pretty                   Pretty-print JSON records
  -server.timeout <duration>       Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body <bytes>         Max cart mutation body size (default: 1048576)
  -server.cors-origin <origin>     Allowed CORS origin. Repeatable; * for any
  -provider.endpoint <url>         Provider GraphQL endpoint
                                   (default: $STOREFRONT_API_ENDPOINT)
  -provider.token <token>          Provider access token
                                   (default: $STOREFRONT_API_TOKEN)
  -provider.fixture <file>         Serve an in-memory catalog from a JSON
                                   fixture instead of a live provider
  -otel.endpoint <addr>            OTLP collector endpoint
  -otel.service <name>             OpenTelemetry service name (default: storefront)

A .env file in the working directory is loaded before flags are read.
`

const checkQueriesUsage = `check-queries FLAGS:
  (none; parses every registered query document and exits non-zero on errors)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("storefront", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "check-queries":
		return cmdCheckQueries(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "check-queries":
		fmt.Print(checkQueriesUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdServe(args []string) error {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	addr := ":8000"
	pretty := false
	timeout := 10 * time.Second
	maxBody := int64(1 << 20)
	endpoint := os.Getenv("STOREFRONT_API_ENDPOINT")
	token := os.Getenv("STOREFRONT_API_TOKEN")
	fixture := ""
	otelEndpoint := ""
	otelService := "storefront"
	var corsOrigins stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON records")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Int64Var(&maxBody, "server.max-body", maxBody, "Max cart mutation body size")
	fs.Var(&corsOrigins, "server.cors-origin", "Allowed CORS origin")
	fs.StringVar(&endpoint, "provider.endpoint", endpoint, "Provider GraphQL endpoint")
	fs.StringVar(&token, "provider.token", token, "Provider access token")
	fs.StringVar(&fixture, "provider.fixture", fixture, "In-memory catalog fixture file")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	provider, cartSvc, err := buildProvider(endpoint, token, fixture)
	if err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	sopts := []server.Option{server.WithMaxBodyBytes(maxBody)}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	if len(corsOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(corsOrigins...))
	}
	h := server.New(provider, cartSvc, sopts...)

	log.Printf("storefront listening on %s", addr)
	return http.ListenAndServe(addr, h)
}

func buildProvider(endpoint, token, fixture string) (storefront.API, cart.Service, error) {
	if fixture != "" {
		products, err := loadFixture(fixture)
		if err != nil {
			return nil, nil, fmt.Errorf("load fixture: %w", err)
		}
		mem := storefront.NewMemory(products)
		return mem, mem, nil
	}
	if endpoint == "" {
		return nil, nil, fmt.Errorf("-provider.endpoint (or STOREFRONT_API_ENDPOINT, or -provider.fixture) is required")
	}
	client := storefront.NewClient(endpoint, token)
	return client, client, nil
}

func loadFixture(path string) ([]catalog.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var products []catalog.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return products, nil
}

func cmdCheckQueries(args []string) error {
	if len(args) > 0 {
		fmt.Fprint(os.Stderr, checkQueriesUsage)
		return fmt.Errorf("check-queries takes no arguments")
	}
	docs := storefront.Documents()
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		if _, err := parser.ParseQuery(&ast.Source{Name: name, Input: docs[name]}); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Printf("ok   %s\n", name)
	}
	if failed > 0 {
		return fmt.Errorf("%d query document(s) failed to parse", failed)
	}
	return nil
}
