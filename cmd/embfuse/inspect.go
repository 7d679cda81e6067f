package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/embfuse/arraystore"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect STORE",
		Short: "List the arrays of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			store, name, err := resolveStore(cmd.Context(), env, args[0])
			if err != nil {
				return err
			}

			r, err := arraystore.Open(cmd.Context(), store, name)
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer r.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "codec: %s\n", r.Codec())

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDTYPE\tSHAPE\tCOMPRESSION\tBYTES\tRAW")
			for _, key := range r.Keys() {
				info, err := r.Info(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%d\t%d\n", key, info.DType, info.Shape, info.Compression, info.Length, info.RawLength)
			}
			return w.Flush()
		},
	}
}
