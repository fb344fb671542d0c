package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	territory "github.com/tingold/orb-territory"
	"github.com/tingold/orb-territory/internal/config"
	"github.com/tingold/orb-territory/internal/logging"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "territoryd",
	Short: "Territory boundary resolution service",
	Long: `territoryd resolves stored project locations into territory outlines.

It serves resolved outlines, status styles and the place registry over HTTP,
and can resolve single values or export the registry as FlatGeobuf from the
command line.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", "", "env file to load instead of ./.env")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(exportCmd)
}

func loadConfig() (*config.Config, error) {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})
}

// loadRegistry returns the configured registry, or the bundled one.
func loadRegistry(cfg *config.Config) (*territory.Registry, error) {
	if cfg.RegistryPath == "" {
		return territory.DefaultRegistry(), nil
	}
	reg, err := territory.LoadRegistryFile(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return reg, nil
}

// resolverOptions builds the resolver options shared by serve and resolve.
func resolverOptions(cfg *config.Config, reg *territory.Registry, log logging.Logger) ([]territory.ResolverOption, error) {
	opts := []territory.ResolverOption{
		territory.WithRegistry(reg),
		territory.WithLogger(log),
	}
	if cfg.DefaultRegion != "" {
		p, ok := reg.Match(cfg.DefaultRegion)
		if !ok {
			return nil, fmt.Errorf("default region %q is not in the registry", cfg.DefaultRegion)
		}
		opts = append(opts, territory.WithDefaultRegion(p))
	}
	return opts, nil
}
