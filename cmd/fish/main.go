// Command fish is a small CLI over a fish.Context: list what's registered,
// plan a conversion between two Formats, and benchmark running a plan over
// a synthetic buffer. It exists for interactive exploration and is the
// library's analogue of a codec inspector tool.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kolbrek/fish"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fish",
		Short: "inspect and exercise a fish pixel-conversion Context",
	}
	root.AddCommand(newListCmd(), newPlanCmd(), newBenchCmd())
	return root
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "list {types|components|models|formats|conversions}",
		Short:     "list registered descriptors",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"types", "components", "models", "formats", "conversions"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := fish.New(fish.DefaultConfig())
			if err != nil {
				return err
			}
			return runList(cmd, ctx, args[0])
		},
	}
	return cmd
}

func runList(cmd *cobra.Command, ctx *fish.Context, kind string) error {
	inner := ctx.Inner()
	switch kind {
	case "types":
		for _, t := range inner.Types() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tbitwidth=%d floating=%v signed=%v\n", t.Name(), t.BitWidth, t.IsFloating, t.Signed)
		}
	case "components":
		for _, c := range inner.Components() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", c.Name())
		}
	case "models":
		for _, m := range inner.Models() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\treference=%v components=%d\n", m.Name(), m.Reference, len(m.Components))
		}
	case "formats":
		for _, f := range inner.Formats() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tmodel=%s type=%s bytes/px=%d reference=%v\n",
				f.Name(), f.Model.Name(), f.Type.Name(), f.BytesPerPixel, f.Reference)
		}
	case "conversions":
		for _, c := range inner.Conversions() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tkind=%v cost=%v\n", c.Name(), c.Kind, c.Cost)
		}
	}
	return nil
}

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <src-format> <dst-format>",
		Short: "print the step sequence the planner finds between two formats",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := fish.New(fish.DefaultConfig())
			if err != nil {
				return err
			}
			src, ok := ctx.Format(args[0])
			if !ok {
				return fmt.Errorf("unknown format %q", args[0])
			}
			dst, ok := ctx.Format(args[1])
			if !ok {
				return fmt.Errorf("unknown format %q", args[1])
			}
			plan, err := ctx.FindConversion(src, dst)
			if err != nil {
				return err
			}
			if len(plan.Steps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(identity — no steps)")
				return nil
			}
			for i, step := range plan.Steps {
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s (kind=%v src-stride=%d dst-stride=%d)\n",
					i, step.Conv.Name(), step.Kind, step.SrcStride, step.DstStride)
			}
			return nil
		},
	}
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench <src-format> <dst-format> <n>",
		Short: "run a plan over n synthetic pixels and report throughput",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := fish.New(fish.DefaultConfig())
			if err != nil {
				return err
			}
			src, ok := ctx.Format(args[0])
			if !ok {
				return fmt.Errorf("unknown format %q", args[0])
			}
			dst, ok := ctx.Format(args[1])
			if !ok {
				return fmt.Errorf("unknown format %q", args[1])
			}
			var n int
			if _, err := fmt.Sscanf(args[2], "%d", &n); err != nil {
				return fmt.Errorf("invalid pixel count %q: %w", args[2], err)
			}

			plan, err := ctx.FindConversion(src, dst)
			if err != nil {
				return err
			}
			srcBuf := make([]byte, src.BytesPerPixel*n)
			dstBuf := make([]byte, dst.BytesPerPixel*n)

			start := time.Now()
			processed, err := ctx.Process(plan, srcBuf, dstBuf, n)
			elapsed := time.Since(start)
			if err != nil {
				return err
			}

			bytesPerSec := uint64(float64(processed*src.BytesPerPixel) / elapsed.Seconds())
			fmt.Fprintf(cmd.OutOrStdout(), "%d pixels in %s (%s/sec)\n", processed, elapsed, humanize.Bytes(bytesPerSec))
			return nil
		},
	}
}
