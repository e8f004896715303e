package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/glimte/ocpp-envelope/actions"
	"github.com/glimte/ocpp-envelope/config"
	"github.com/glimte/ocpp-envelope/schema"
	"github.com/glimte/ocpp-envelope/serialization"
	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *serialization.Registry
	in       io.Reader
	out      io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var (
		configPath string
		verbose    bool
	)
	a := &app{in: stdin, out: stdout}

	rootCmd := &cobra.Command{
		Use:   "envelopectl",
		Short: "Inspect, validate and sign OCPP message payloads",
		Long: `envelopectl works with OCPP 2.1 payloads outside a running station or CSMS.
It validates payloads against the registered action schemas, signs and verifies
embedded signatures, computes response routing and replays OCPP-J frames.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if verbose {
				cfg.LogLevel = slog.LevelDebug
			}
			a.cfg = cfg
			a.logger = cfg.Logger(stderr)

			a.registry = serialization.NewRegistry()
			if err := actions.Register(a.registry); err != nil {
				return fmt.Errorf("failed to register actions: %w", err)
			}
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newValidateCmd(a),
		newSchemaCmd(a),
		newActionsCmd(a),
		newKeygenCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newRouteCmd(a),
		newSimulateCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// validator returns a validator loaded with the schemas of the configured protocol version
func (a *app) validator() (*schema.MessageValidator, error) {
	v := schema.NewMessageValidator(a.cfg.ValidatorOptions()...)
	if err := a.registry.RegisterSchemasVersion(v, a.cfg.ProtocolVersion); err != nil {
		return nil, err
	}
	return v, nil
}

// readInput reads the named file, or stdin for "-"
func (a *app) readInput(name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(a.in)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
