package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	territory "github.com/tingold/orb-territory"
	"github.com/tingold/orb-territory/internal/logging"
)

var (
	exportOutput  string
	exportNoIndex bool
)

var exportCmd = &cobra.Command{
	Use:   "export-registry",
	Short: "Write the place registry as FlatGeobuf",
	Long: `Write the configured place registry (or the bundled one) to a FlatGeobuf
file. The file keeps lookup order in its rank column and can be loaded back
with TERRITORY_REGISTRY_PATH.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}
		if err := exportRegistry(reg, exportOutput, !exportNoIndex); err != nil {
			return err
		}
		log.Info(context.Background(), "registry exported",
			logging.String("path", exportOutput),
			logging.Int("places", reg.Len()))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "places.fgb", "output file")
	exportCmd.Flags().BoolVar(&exportNoIndex, "no-index", false, "omit the spatial index (the file cannot be loaded back)")
}

func exportRegistry(reg *territory.Registry, path string, index bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	opts := territory.DefaultOptions()
	opts.Name = "places"
	opts.Description = "Place registry in lookup order"
	opts.IncludeIndex = index
	if err := territory.WritePlaces(f, reg, opts); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
