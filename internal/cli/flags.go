package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/config"
)

// ReconcileFlags are the flags of the reconcile command
type ReconcileFlags struct {
	ConfigPath string
	Input      string
	NoAudit    bool
	Verbose    bool
	JSON       bool
}

// ParseReconcileFlags parses reconcile flags from args (without the program name)
func ParseReconcileFlags(args []string, stderr io.Writer) (*ReconcileFlags, error) {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var flags ReconcileFlags
	fs.StringVar(&flags.ConfigPath, "config", "", "Path to config.yaml (default: ./config.yaml, then environment)")
	fs.StringVar(&flags.Input, "input", "-", "JSON request file, - for stdin")
	fs.BoolVar(&flags.NoAudit, "no-audit", false, "Do not record decisions in the audit database")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&flags.JSON, "json", false, "Print results as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %v", fs.Args())
		fmt.Fprintln(stderr, err)
		fs.Usage()
		return nil, err
	}
	return &flags, nil
}

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	ConfigPath string
	Port       int
	Verbose    bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags(args []string, stderr io.Writer) (*ServeFlags, error) {
	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	fs.SetOutput(stderr)

	flags := &ServeFlags{}
	fs.StringVar(&flags.ConfigPath, "config", "", "Path to config.yaml (default: ./config.yaml, then environment)")
	fs.IntVar(&flags.Port, "port", 0, "Port to listen on (overrides config)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// LoadConfig loads path when given and fails loudly on a bad file.
// Without a path it falls back to ./config.yaml and then the environment.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.LoadOrEnv()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}
