package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/acceptevents/pkg/config"
)

// ValidateOutput is the JSON result of the validate command.
type ValidateOutput struct {
	File      string   `json:"file"`
	Valid     bool     `json:"valid"`
	Listen    string   `json:"listen,omitempty"`
	Protocols []string `json:"protocols,omitempty"`
	Error     string   `json:"error,omitempty"`
	Field     string   `json:"field,omitempty"`
	Effective string   `json:"effective,omitempty"`
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	var printEffective bool

	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file without starting the server",
		Example: `  # Validate a YAML configuration
  acceptevents validate acceptevents.yaml

  # Machine readable result
  acceptevents validate --json acceptevents.json

  # Show the configuration with defaults applied
  acceptevents validate --print acceptevents.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ValidateOutput{File: args[0]}

			cfg, err := config.LoadFromFile(args[0])
			if err != nil {
				out.Error = err.Error()
				var ve *config.ValidationError
				if errors.As(err, &ve) {
					out.Field = ve.Field
				}
				if g.jsonOutput {
					if perr := printJSON(cmd.OutOrStdout(), out); perr != nil {
						return perr
					}
				}
				return fmt.Errorf("invalid configuration: %w", err)
			}

			out.Valid = true
			out.Listen = cfg.Listen
			out.Protocols = cfg.Protocols()

			if printEffective {
				data, err := config.ToYAML(redacted(cfg))
				if err != nil {
					return err
				}
				out.Effective = string(data)
			}

			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", out.File)
			fmt.Fprintf(cmd.OutOrStdout(), "  listen:    %s\n", out.Listen)
			fmt.Fprintf(cmd.OutOrStdout(), "  protocols: %v\n", out.Protocols)
			if out.Effective != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s", out.Effective)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&printEffective, "print", false, "Print the effective configuration as YAML")
	return cmd
}

// redacted returns a copy of cfg with secrets masked.
func redacted(cfg *config.ServerConfig) *config.ServerConfig {
	cp := *cfg
	if cfg.MQTT != nil && cfg.MQTT.Broker.Password != "" {
		m := *cfg.MQTT
		m.Broker.Password = "********"
		cp.MQTT = &m
	}
	return &cp
}
