package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/embfuse/arraystore"
)

func packCmd() *cobra.Command {
	var (
		compression string
		half        bool
		delimiter   string
		rows        int
	)

	cmd := &cobra.Command{
		Use:   "pack OUTPUT FEATURE=FILE...",
		Short: "Build a pretrained embedding store from CSV/TSV files",
		Long: `Build a pretrained embedding store from CSV/TSV files.

Every line of FILE is "id,v1,v2,...": the row index followed by the
embedding values. Rows that do not appear are zero. Lines starting with #
are ignored. Files ending in .tsv are tab separated unless --delimiter is
given.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := arraystore.ParseCompression(compression)
			if err != nil {
				return err
			}

			b := arraystore.NewBuilder(arraystore.WithCompression(comp))
			for _, arg := range args[1:] {
				name, file, ok := strings.Cut(arg, "=")
				if !ok || name == "" || file == "" {
					return fmt.Errorf("argument %q: want FEATURE=FILE", arg)
				}
				table, width, err := readTable(file, delimiter, rows)
				if err != nil {
					return fmt.Errorf("feature %s: %w", name, err)
				}
				shape := []int{len(table) / width, width}
				if half {
					err = b.AddFloat16(name, shape, table)
				} else {
					err = b.AddFloat32(name, shape, table)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d x %d\n", name, shape[0], shape[1])
			}

			env, err := loadEnv()
			if err != nil {
				return err
			}
			store, blobName, err := resolveStore(cmd.Context(), env, args[0])
			if err != nil {
				return err
			}
			if err := b.Save(cmd.Context(), store, blobName); err != nil {
				return fmt.Errorf("save %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d arrays to %s\n", b.Len(), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&compression, "compression", "zstd", "Payload compression: none, lz4, zstd")
	cmd.Flags().BoolVar(&half, "float16", false, "Store values as float16")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", `Field separator (default: "," or tab for .tsv)`)
	cmd.Flags().IntVar(&rows, "rows", 0, "Number of rows (default: largest id + 1)")

	return cmd
}

// readTable parses an id-keyed text table into a dense row-major slice.
func readTable(path, delimiter string, rows int) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	if delimiter == "" {
		delimiter = ","
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			delimiter = "\t"
		}
	}
	if delimiter == `\t` {
		delimiter = "\t"
	}
	sep := []rune(delimiter)
	if len(sep) != 1 {
		return nil, 0, fmt.Errorf("delimiter %q must be a single character", delimiter)
	}

	r := csv.NewReader(f)
	r.Comma = sep[0]
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	byID := make(map[int][]float32)
	width, maxID := 0, -1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		line, _ := r.FieldPos(0)
		if len(rec) < 2 {
			return nil, 0, fmt.Errorf("%s:%d: want id and at least one value", path, line)
		}
		if width == 0 {
			width = len(rec) - 1
		}
		if len(rec)-1 != width {
			return nil, 0, fmt.Errorf("%s:%d: %d values, want %d", path, line, len(rec)-1, width)
		}

		id, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil || id < 0 {
			return nil, 0, fmt.Errorf("%s:%d: invalid id %q", path, line, rec[0])
		}
		if _, dup := byID[id]; dup {
			return nil, 0, fmt.Errorf("%s:%d: duplicate id %d", path, line, id)
		}

		vec := make([]float32, width)
		for i, field := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return nil, 0, fmt.Errorf("%s:%d: %w", path, line, err)
			}
			vec[i] = float32(v)
		}
		byID[id] = vec
		maxID = max(maxID, id)
	}
	if width == 0 {
		return nil, 0, fmt.Errorf("%s: no rows", path)
	}

	if rows == 0 {
		rows = maxID + 1
	}
	if maxID >= rows {
		return nil, 0, fmt.Errorf("%s: id %d does not fit %d rows", path, maxID, rows)
	}

	table := make([]float32, rows*width)
	for id, vec := range byID {
		copy(table[id*width:], vec)
	}
	return table, width, nil
}
