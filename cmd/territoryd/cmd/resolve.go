package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	territory "github.com/tingold/orb-territory"
)

var (
	resolveStatus   string
	resolveSelected bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [location]",
	Short: "Resolve one stored location value",
	Long: `Resolve a stored location value and print the territory feature.

The value is taken from the arguments, or from stdin when none are given. It may
be GeoJSON text or free text naming a place.`,
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
		opts, err := resolverOptions(cfg, reg, log)
		if err != nil {
			return err
		}

		value := strings.Join(args, " ")
		if len(args) == 0 {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			value = string(b)
		}

		out, err := resolveValue(territory.NewResolver(opts...), value)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveStatus, "status", "s", string(territory.StatusPending), "project status used for the style")
	resolveCmd.Flags().BoolVar(&resolveSelected, "selected", false, "style as selected")
}

type resolveOutput struct {
	Step    string            `json:"step"`
	Place   string            `json:"place,omitempty"`
	Style   territory.Style   `json:"style"`
	Summary territory.Summary `json:"summary"`
	Feature json.RawMessage   `json:"feature"`
}

func resolveValue(r *territory.Resolver, value string) (*resolveOutput, error) {
	res := r.ResolveDetailed(value)
	name := res.Place
	if name == "" {
		name = territory.DefaultFeatureName
	}

	ring := territory.ToInterchange(res.Ring, territory.ViewportOrder)
	f, err := territory.NewFeature(ring, name)
	if err != nil {
		return nil, err
	}
	text, err := territory.MarshalFeature(f)
	if err != nil {
		return nil, err
	}

	return &resolveOutput{
		Step:    res.Step.String(),
		Place:   res.Place,
		Style:   territory.StyleFor(territory.Status(resolveStatus), false, resolveSelected),
		Summary: territory.Summarize(ring),
		Feature: json.RawMessage(text),
	}, nil
}
