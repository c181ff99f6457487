package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample apidecl configuration file",
		Long:  "Scaffold a commented apidecl configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", "apidecl.yaml", "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = "apidecl.yaml"
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	if err := writeOutput(out, []byte(content), cfg.Force); err != nil {
		if errors.Is(err, errOutputExists) {
			return newUsageError(fmt.Sprintf("init: %v (use --force to overwrite)", err))
		}
		return newUsageError(fmt.Sprintf("init: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	newLogger(os.Stderr, cfg.Verbose).Debug("wrote sample config", "path", out, "force", cfg.Force)
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", out)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# apidecl configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Path or URL to the route catalog (http/https or local file).
# catalog: ./routes.yaml

# Resource to document (e.g. widgets). Mutually exclusive with all.
# resource: widgets

# Document every resource, writing one file per resource into out.
# all: false

# With all, also write the resource listing (resources.json).
# listing: false

# Output format: json, yaml, openapi2 or openapi3. Defaults to json.
# format: json

# Output file, or directory when all is set. Stdout when omitted.
# out: ./docs

# basePath advertised by the declarations. Falls back to the catalog's
# basePath, then to the parent of requestUrl.
# basePath: https://api.example.com
# requestUrl: http://api.example.com/resource/widgets

# Upgrade an http basePath to https.
# useHttps: false

# apiVersion advertised by the declarations. Falls back to the catalog's.
# apiVersion: "1.0"

# info.title of exported OpenAPI documents.
# title: Widget API

# Model property naming. useUnderscoreNames requires useCamelCaseNames.
# useCamelCaseNames: false
# useUnderscoreNames: false

# Skip the synthesized body parameter on non-GET operations.
# disableAutoBodyParam: false

# Only include operations using these methods (comma-separated or list).
# methods: [GET, POST]

# Only include routes whose path matches one of these regular expressions.
# includePaths: ["^/widgets"]

# Overwrite existing output files.
# force: false

# Enable verbose logging.
# verbose: false
`
