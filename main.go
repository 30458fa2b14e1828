package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/mcncl/jsonfrag/internal/config"
	"github.com/mcncl/jsonfrag/internal/errors"
	"github.com/mcncl/jsonfrag/internal/formatter"
	"github.com/mcncl/jsonfrag/internal/parser"
	"github.com/mcncl/jsonfrag/internal/resolver"
)

// CLI defines the command-line interface
var CLI struct {
	Input       string `help:"Path to input fragments file (JSON or JSONC). If not specified, reads from stdin." short:"i" type:"path"`
	Start       string `help:"Name of the fragment to resolve." short:"s"`
	Output      string `help:"Path to output JSON file. If not specified, writes to stdout." short:"o" type:"path"`
	Config      string `help:"Path to a config file. If not specified, searches for .jsonfrag.yml upwards." short:"c" type:"path"`
	DelimStart  string `help:"Reference start delimiter." placeholder:"["`
	DelimEnd    string `help:"Reference end delimiter." placeholder:"]"`
	Missing     string `help:"Missing fragment behavior: throw, leave_unresolved, use_default or remove."`
	Default     string `help:"Default value (JSON text) used when --missing=use_default."`
	Compact     bool   `help:"Emit compact JSON instead of indented."`
	Indent      int    `help:"Indent width for pretty output." default:"-1"`
	Deps        bool   `help:"Print the start fragment's dependency edges instead of resolving."`
	Debug       bool   `help:"Enable debug logging." short:"d"`
	Version     bool   `help:"Show version information." short:"v"`
	Interactive bool   `help:"Run in interactive mode, allowing direct JSON input with Ctrl+D to process." short:"I"`
}

// Context holds the runtime context
type Context struct {
	Debug bool
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	kongParser := kong.Must(&CLI,
		kong.Name("jsonfrag"),
		kong.Description("A tool to resolve named JSON fragments into a single substituted value"),
		kong.UsageOnError(),
	)

	// With no arguments at all, fall back to interactive paste mode.
	if len(os.Args) == 1 {
		CLI.Interactive = true
	}

	if _, err := kongParser.Parse(os.Args[1:]); err != nil {
		// Usage is already shown by kong.UsageOnError()
		os.Exit(1)
	}

	if CLI.Version {
		fmt.Printf("jsonfrag version %s\n", Version)
		return
	}

	if err := run(&Context{Debug: CLI.Debug}); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsonfrag --help\n")
		os.Exit(1)
	}
}

// run executes the main program logic
func run(ctx *Context) error {
	// 1. Load configuration (file, then CLI overrides)
	cfg, err := loadConfig()
	if err != nil {
		return errors.NewConfigError("failed to load configuration", err)
	}
	resolverConfig, err := cfg.ToResolverConfig()
	if err != nil {
		return errors.NewConfigError("invalid resolver configuration", err)
	}

	// 2. Parse the fragments document
	doc, err := parseInput()
	if err != nil {
		return err
	}
	if ctx.Debug {
		fmt.Fprintf(os.Stderr, "parsed %d fragments\n", len(doc.Fragments))
	}

	start := CLI.Start
	if start == "" {
		return errors.NewInputError("no start fragment given: please pass -s <fragment name>", nil)
	}

	res := resolver.NewResolver(resolverConfig)

	// 3a. Dependency listing mode
	if CLI.Deps {
		edges, err := res.Dependencies(doc.Fragments, start)
		if err != nil {
			return err
		}
		return writeOutput(renderDependencies(edges))
	}

	// 3b. Resolution
	value, err := res.Resolve(doc.Fragments, start)
	if err != nil {
		return err
	}

	// 4. Render the result
	out, err := formatterForConfig(cfg).Format(value)
	if err != nil {
		return err
	}

	// 5. Output the result
	return writeOutput(out)
}

// loadConfig layers CLI flags over the config file (explicit -c path, else
// the nearest .jsonfrag.yml), over built-in defaults.
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()

	configPath := CLI.Config
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	if configPath != "" {
		fileConfig, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if CLI.DelimStart != "" {
		cfg.Delimiters.Start = CLI.DelimStart
	}
	if CLI.DelimEnd != "" {
		cfg.Delimiters.End = CLI.DelimEnd
	}
	if CLI.Missing != "" {
		cfg.Missing = CLI.Missing
	}
	if CLI.Default != "" {
		defaultValue, err := parser.ParseString(CLI.Default)
		if err != nil {
			return nil, fmt.Errorf("--default is not valid JSON: %w", err)
		}
		cfg.Default = defaultValue
	}
	if CLI.Compact {
		cfg.Output.Compact = true
	}
	if CLI.Indent >= 0 {
		cfg.Output.Indent = CLI.Indent
	}
	if CLI.Debug {
		cfg.Dev.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func formatterForConfig(cfg *config.Config) *formatter.Formatter {
	return formatter.NewFormatterWithOptions(cfg.Output.Indent, cfg.Output.Compact)
}

// parseInput reads the fragments document from file or stdin
func parseInput() (*parser.FragmentDocument, error) {
	if CLI.Input != "" {
		return parser.ParseFragmentsFile(CLI.Input)
	}

	stdinInfo, err := os.Stdin.Stat()
	if err != nil {
		return nil, errors.NewInputError("failed to access stdin", err)
	}

	if (stdinInfo.Mode() & os.ModeCharDevice) != 0 {
		// Terminal is interactive (not piped)
		if CLI.Interactive {
			return readInteractiveInput()
		}
		return nil, errors.NewInputError("no input provided", errors.ErrNoInput)
	}

	jsonData, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, errors.NewInputError("failed to read from stdin", err)
	}
	if len(jsonData) == 0 {
		return nil, errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}

	return parser.ParseFragmentsString(string(jsonData))
}

// writeOutput writes text to file or stdout
func writeOutput(text string) error {
	if CLI.Output != "" {
		err := os.WriteFile(CLI.Output, []byte(text), 0644)
		if err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", CLI.Output), err)
		}
		fmt.Fprintf(os.Stderr, "Resolved JSON written to %s\n", CLI.Output)
		return nil
	}

	_, err := fmt.Print(text)
	if err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// renderDependencies prints the edge multimap one dependent per line, both
// sides sorted for stable output.
func renderDependencies(edges map[string][]string) string {
	dependents := make([]string, 0, len(edges))
	for dependent := range edges {
		dependents = append(dependents, dependent)
	}
	sort.Strings(dependents)

	var sb strings.Builder
	for _, dependent := range dependents {
		sb.WriteString(dependent)
		sb.WriteString(" -> ")
		sb.WriteString(strings.Join(edges[dependent], ", "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// readInteractiveInput provides an interactive mode for users to paste the
// fragments document and signal completion with Ctrl+D (EOF)
func readInteractiveInput() (*parser.FragmentDocument, error) {
	fmt.Fprintln(os.Stderr, "jsonfrag Interactive Mode")
	fmt.Fprintln(os.Stderr, "Paste your fragments JSON below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	reader := bufio.NewReader(os.Stdin)
	var jsonBuilder strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewInputError("error reading input", err)
		}
		jsonBuilder.WriteString(line)
	}

	jsonData := jsonBuilder.String()
	if len(jsonData) == 0 {
		return nil, errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}

	fmt.Fprintln(os.Stderr, "\nProcessing fragments...")
	return parser.ParseFragmentsString(jsonData)
}
