package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	genspec "github.com/mark3labs/apidecl/internal/spec"
	"github.com/spf13/cobra"
)

var resourcesRunner = runResources

func newResourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Print the resource listing of a route catalog",
		Long: "Print the resource listing of a route catalog: one entry per resource path. " +
			"Reads the same config file as generate.",
		Example: strings.TrimSpace(`  apidecl resources --catalog routes.yaml
  apidecl resources --catalog routes.yaml --format json`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := defaultGenerateConfig()
			cfg.Format = "text"
			configPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			if configPath = strings.TrimSpace(configPath); configPath != "" {
				cfg.ConfigPath = configPath
				if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
					return err
				}
			}
			if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
				return err
			}
			cfg.normalize()
			if cfg.Catalog == "" {
				return newUsageError("resources: --catalog is required (set via flag or config file)")
			}
			switch cfg.Format {
			case "", "text":
				cfg.Format = "text"
			case FormatJSON, FormatYAML:
			default:
				return newUsageError(fmt.Sprintf("resources: unsupported --format %q (allowed: text, json, yaml)", cfg.Format))
			}
			return resourcesRunner(cmd.Context(), &cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("catalog", "", "Path or URL to the route catalog (YAML or JSON)")
	flags.String("format", "", "Output format (text|json|yaml); defaults to text")
	flags.String("base-path", "", "basePath advertised by the listing")
	flags.String("api-version", "", "apiVersion advertised by the listing")
	flags.StringSlice("include-paths", nil, "Only include routes whose path matches one of these regular expressions")

	return cmd
}

func runResources(ctx context.Context, cfg *GenerateConfig) error {
	logger := newLogger(os.Stderr, cfg.Verbose)
	cat, err := genspec.LoadCatalog(ctx, cfg.Catalog, genspec.WithLoadLogger(logger))
	if err != nil {
		return specErrorToUsage(err)
	}
	listing := genspec.BuildListing(cat.Routes, cfg.buildOptions(cat, logger)...)

	if cfg.Format != "text" {
		data, err := encode(listing, cfg.Format)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, api := range listing.APIs {
		fmt.Fprintf(tw, "%s\t%s\n", strings.TrimPrefix(api.Path, "/resource"), api.Description)
	}
	return tw.Flush()
}
