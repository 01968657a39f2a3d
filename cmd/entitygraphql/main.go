package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/overjt/entitygraphql/internal/dataschema"
	"github.com/overjt/entitygraphql/internal/eventbus"
	"github.com/overjt/entitygraphql/internal/executor"
	"github.com/overjt/entitygraphql/internal/language"
	"github.com/overjt/entitygraphql/internal/otel"
	"github.com/overjt/entitygraphql/internal/schema"
	"github.com/overjt/entitygraphql/internal/server"
)

const rootUsage = `entitygraphql: GraphQL over JSON data

USAGE:
  entitygraphql <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL endpoint over a JSON document
  query            Execute one query against a JSON document
  sdl              Print the schema inferred from a JSON document
  help             Show help for any command
`

const schemaFlagsUsage = `  -data <file>                        JSON document to serve (required)
  -paging                             Offset-page every list of objects
  -sort                               Add a sort argument to every list of objects
  -page-size N                        Default page size (default: 20)
  -max-page-size N                    Largest allowed page size, 0 for none (default: 100)
  -introspection <bool>               Answer __schema and __type queries (default: true)
  -log-level <level>                  zerolog level (default: info)
`

const serveUsage = `serve FLAGS:
` + schemaFlagsUsage + `  -server.addr <addr>                 HTTP listen address (default: :8080)
  -server.pretty                      Pretty-print JSON responses
  -server.timeout <duration>          Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body-bytes N            Request body limit, 0 for none (default: 1048576)
  -server.cors <origin>               Allowed CORS origin. Repeatable
  -auth.roles-header <name>           Header listing caller roles (default: X-Roles)
  -auth.policies-header <name>        Header listing caller policies (default: X-Policies)
  -otel.endpoint <addr>               OTLP collector endpoint
  -otel.service <name>                OpenTelemetry service name (default: entitygraphql)
`

const queryUsage = `query FLAGS:
` + schemaFlagsUsage + `  -query <document>                   GraphQL document (required)
  -variables <json>                   Variables as a JSON object
  -operation <name>                   Operation to run
  -roles <a,b>                        Caller roles
  -policies <a,b>                     Caller policies
`

const sdlUsage = `sdl FLAGS:
` + schemaFlagsUsage + `  -out <file>                         Write SDL to file (default: stdout)
  (The rendered SDL is parsed back; exits non-zero on errors)
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := args[0]
	cmdArgs := args[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs, stderr)
	case "query":
		return cmdQuery(cmdArgs, stdout, stderr)
	case "sdl":
		return cmdSDL(cmdArgs, stdout, stderr)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "query":
		fmt.Fprint(stdout, queryUsage)
	case "sdl":
		fmt.Fprint(stdout, sdlUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return strings.Join(*s, ",") }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// schemaFlags are shared by every command that loads a document.
type schemaFlags struct {
	data          string
	paging        bool
	sort          bool
	pageSize      int
	maxPageSize   int
	introspection bool
	logLevel      string
}

func (sf *schemaFlags) register(fs *flag.FlagSet) {
	sf.pageSize = 20
	sf.maxPageSize = 100
	sf.introspection = true
	sf.logLevel = "info"
	fs.StringVar(&sf.data, "data", sf.data, "JSON document")
	fs.BoolVar(&sf.paging, "paging", sf.paging, "Offset-page lists of objects")
	fs.BoolVar(&sf.sort, "sort", sf.sort, "Sort lists of objects")
	fs.IntVar(&sf.pageSize, "page-size", sf.pageSize, "Default page size")
	fs.IntVar(&sf.maxPageSize, "max-page-size", sf.maxPageSize, "Largest page size")
	fs.BoolVar(&sf.introspection, "introspection", sf.introspection, "Enable introspection")
	fs.StringVar(&sf.logLevel, "log-level", sf.logLevel, "Log level")
}

// load reads the document and infers its schema. The decoded document is
// the root value for execution.
func (sf *schemaFlags) load(stderr io.Writer) (*schema.Schema, map[string]any, zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(sf.logLevel)
	if err != nil {
		return nil, nil, zerolog.Logger{}, fmt.Errorf("-log-level: %w", err)
	}
	log := zerolog.New(stderr).Level(level).With().Timestamp().Logger()

	if sf.data == "" {
		return nil, nil, log, fmt.Errorf("-data is required")
	}
	raw, err := os.ReadFile(sf.data)
	if err != nil {
		return nil, nil, log, fmt.Errorf("read data: %w", err)
	}
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, nil, log, fmt.Errorf("decode data: %w", err)
	}

	s, err := dataschema.Build(root, dataschema.Options{
		Paging:          sf.paging,
		DefaultPageSize: sf.pageSize,
		MaxPageSize:     sf.maxPageSize,
		Sort:            sf.sort,
		Introspection:   sf.introspection,
	}, schema.WithLogger(log))
	if err != nil {
		return nil, nil, log, fmt.Errorf("build schema: %w", err)
	}
	log.Debug().Str("data", sf.data).Int("types", len(s.Types)).Msg("schema built")
	return s, root, log, nil
}

func cmdServe(args []string, stderr io.Writer) error {
	var sf schemaFlags
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	maxBody := int64(1 << 20)
	rolesHeader := "X-Roles"
	policiesHeader := "X-Policies"
	otelEndpoint := ""
	otelService := "entitygraphql"
	var origins stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	sf.register(fs)
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Int64Var(&maxBody, "server.max-body-bytes", maxBody, "Request body limit")
	fs.Var(&origins, "server.cors", "Allowed CORS origin")
	fs.StringVar(&rolesHeader, "auth.roles-header", rolesHeader, "Roles header")
	fs.StringVar(&policiesHeader, "auth.policies-header", policiesHeader, "Policies header")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}

	s, root, log, err := sf.load(stderr)
	if err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	sopts := []server.Option{
		server.WithTimeout(timeout),
		server.WithMaxBodyBytes(maxBody),
		server.WithPrincipal(server.HeaderPrincipal(rolesHeader, policiesHeader)),
		server.WithLogger(log),
	}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(origins) > 0 {
		sopts = append(sopts, server.WithCORS(origins...))
	}
	h := server.New(executor.New(s), root, sopts...)

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	log.Info().Str("addr", addr).Msg("GraphQL server listening")
	return http.ListenAndServe(addr, mux)
}

func cmdQuery(args []string, stdout, stderr io.Writer) error {
	var sf schemaFlags
	query := ""
	variables := ""
	operation := ""
	roles := ""
	policies := ""

	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	sf.register(fs)
	fs.StringVar(&query, "query", query, "GraphQL document")
	fs.StringVar(&variables, "variables", variables, "Variables JSON")
	fs.StringVar(&operation, "operation", operation, "Operation name")
	fs.StringVar(&roles, "roles", roles, "Caller roles")
	fs.StringVar(&policies, "policies", policies, "Caller policies")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, queryUsage)
		return err
	}
	if query == "" {
		fmt.Fprint(stderr, queryUsage)
		return fmt.Errorf("-query is required")
	}
	var vars map[string]any
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &vars); err != nil {
			return fmt.Errorf("-variables: %w", err)
		}
	}

	s, root, _, err := sf.load(stderr)
	if err != nil {
		fmt.Fprint(stderr, queryUsage)
		return err
	}

	res := executor.New(s).Execute(context.Background(), executor.Request{
		Query:         query,
		OperationName: operation,
		Variables:     vars,
		Root:          root,
		Principal:     schema.StaticPrincipal{Roles: splitList(roles), Policies: splitList(policies)},
	})
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("query finished with %d error(s)", len(res.Errors))
	}
	return nil
}

func cmdSDL(args []string, stdout, stderr io.Writer) error {
	var sf schemaFlags
	outFile := ""
	fs := flag.NewFlagSet("sdl", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	sf.register(fs)
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, sdlUsage)
		return err
	}

	s, _, _, err := sf.load(stderr)
	if err != nil {
		fmt.Fprint(stderr, sdlUsage)
		return err
	}
	sdl := schema.Render(s)
	if _, err := language.ParseSchema(sf.data, sdl); err != nil {
		return fmt.Errorf("rendered schema: %w", err)
	}
	if outFile == "" {
		fmt.Fprint(stdout, sdl)
		return nil
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
