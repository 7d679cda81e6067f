package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/embfuse"
	"github.com/hupe1980/embfuse/config"
	"github.com/hupe1980/embfuse/tensor"
)

func applyCmd() *cobra.Command {
	var (
		configPath string
		features   []string
		ids        []int64
		stats      bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Build fusers from a model config and print fused vectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			model, err := config.Load(configPath)
			if err != nil {
				return err
			}
			env, err := loadEnv()
			if err != nil {
				return err
			}
			opts, err := env.Options(ctx, env.ResourceController())
			if err != nil {
				return err
			}
			metrics := &embfuse.BasicMetricsCollector{}
			opts = append(opts, embfuse.WithMetricsCollector(metrics))

			input, err := tensor.NewIDs(ids)
			if err != nil {
				return fmt.Errorf("ids: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, cfg := range model.FuserConfigs() {
				if len(features) > 0 && !slices.Contains(features, cfg.FeatureName) {
					continue
				}
				if err := applyFeature(cmd, out, cfg, input, opts); err != nil {
					return err
				}
			}

			if stats {
				s := metrics.GetStats()
				fmt.Fprintf(out, "loads=%d loaded_bytes=%d applies=%d ids=%d avg_apply=%dns\n",
					s.LoadCount, s.LoadedBytes, s.ApplyCount, s.ApplyIDs, s.ApplyAvgNanos)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "model.yaml", "Path to the model config")
	cmd.Flags().StringSliceVarP(&features, "feature", "f", nil, "Features to apply (default: all)")
	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "Feature IDs to look up")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print load and apply statistics")
	_ = cmd.MarkFlagRequired("ids")

	return cmd
}

func applyFeature(cmd *cobra.Command, out io.Writer, cfg embfuse.Config, ids *tensor.IDs, opts []embfuse.Option) error {
	emb, err := embfuse.New(cmd.Context(), cfg, opts...)
	if err != nil {
		return err
	}
	defer emb.Close()

	fused, err := emb.Apply(ids)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s (%s, dim %d)\n", cfg.FeatureName, emb.Mode(), emb.OutputDim())
	for i, id := range ids.Data() {
		fmt.Fprintf(out, "  %d: %s\n", id, formatVector(fused.Row(i)))
	}
	return nil
}

func formatVector(v []float32) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(float64(x), 'g', 6, 32)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
