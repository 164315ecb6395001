package cmd

import (
	"fmt"
	"math/rand/v2"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MeKo-Tech/freqaug/internal/augment"
	"github.com/MeKo-Tech/freqaug/internal/common"
	"github.com/MeKo-Tech/freqaug/internal/dataset"
	"github.com/MeKo-Tech/freqaug/internal/tensor"
)

func newBenchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark one augmentation on synthetic batches",
		Long: `Run an augmentation repeatedly on a synthetic batch drawn from U(0, 255)
and report the applied fraction, mean latency, mean relative change
||out - x|| / ||x|| and the amount of data processed.

The overlay variant samples uniform noise instead of a natural image folder
unless --overlay-dir is given.

Examples:
  freqaug bench --variant mask-ring
  freqaug bench --variant mix-band-3 --batch 64 --channels 9 --iterations 200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBench(cmd)
		},
	}

	f := cmd.Flags()
	f.String("variant", "mask-square", "augmentation variant (see 'freqaug variants')")
	f.Float64("freq-alpha", 1.0, "upper bound of the mix coefficient; the coefficient of mix-fixed")
	f.String("device", "cpu", "device handle attached to the batch")
	f.Uint64("seed", 0, "random seed (0 draws a random seed)")
	f.Int("size", 84, "image height and width")
	f.String("overlay-dir", "", "image folder sampled by the overlay variant")
	f.Int("batch", 32, "batch size N")
	f.Int("channels", 9, "channels C (3 per stacked frame)")
	f.Int("iterations", 100, "number of transform calls")
	f.Bool("no-progress", false, "hide the progress bar")
	return cmd
}

func (a *app) runBench(cmd *cobra.Command) error {
	cfg := a.cfg
	variant, err := cfg.Variant()
	if err != nil {
		return err
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetInt("batch")
	c, _ := cmd.Flags().GetInt("channels")
	iterations, _ := cmd.Flags().GetInt("iterations")
	quiet, _ := cmd.Flags().GetBool("no-progress")
	size := cfg.Augment.ImageSize
	if n <= 0 || c <= 0 || iterations <= 0 {
		return fmt.Errorf("invalid benchmark size: batch=%d channels=%d iterations=%d", n, c, iterations)
	}

	seed := cfg.Augment.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed+1))
	x := uniformBatch(rng, n, c, size, engineCfg.Device)
	var x2 *tensor.Batch
	if variant.Family() == augment.FamilyMix {
		x2 = uniformBatch(rng, n, c, size, engineCfg.Device)
	}

	var src augment.OverlaySource = dataset.NewNoise(rng)
	if cfg.Overlay.Dir != "" {
		src = dataset.NewFolder(cfg.Overlay.Dir,
			dataset.WithExtensions(cfg.Overlay.Extensions...),
			dataset.WithRand(rng),
			dataset.WithLogger(a.logger))
	}
	eng := augment.NewEngine(engineCfg,
		augment.WithRand(rng),
		augment.WithOverlaySource(src),
		augment.WithLogger(a.logger))

	xNorm := x.FrobeniusNorm()
	bytesPerCall := uint64(len(x.Data)) * 4
	if x2 != nil {
		bytesPerCall *= 2
	}

	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.NewOptions(iterations,
			progressbar.OptionSetDescription(variant.String()),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("calls"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionClearOnFinish(),
		)
	}

	result := common.BenchmarkResult{Name: variant.String(), MemoryBefore: common.GetMemoryStats()}
	timer := common.NewNamedTimer(variant.String())
	for range iterations {
		res, err := eng.Transform(x, x2, variant)
		elapsed := timer.Lap()
		if err != nil {
			result.Error = err
			break
		}
		rel := 0.0
		if xNorm > 0 {
			diff, err := res.Batch.DiffNorm(x)
			if err != nil {
				result.Error = err
				break
			}
			rel = diff / xNorm
		}
		result.Record(elapsed, res.Applied, rel, bytesPerCall)
		if bar != nil {
			_ = bar.Add(1)
		}
		timer.Restart()
	}
	if bar != nil {
		_ = bar.Finish()
	}
	result.MemoryAfter = common.GetMemoryStats()
	if result.Error != nil {
		return fmt.Errorf("benchmark %s: %w", variant, result.Error)
	}

	a.logger.Info("benchmark finished", "variant", variant.String(), "iterations", result.Iterations,
		"mean_latency", result.MeanLatency().String(), "timed", timer.String(), "seed", seed)

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Batch: %v on %s\n", x.Shape, x.Device)
	_, _ = fmt.Fprintln(out, result.String())
	_, _ = fmt.Fprintf(out, "Memory: %s\n", result.MemoryAfter)
	return nil
}

// uniformBatch draws an (n,c,size,size) batch from U(0, 255).
func uniformBatch(rng *rand.Rand, n, c, size int, dev tensor.Device) *tensor.Batch {
	dist := distuv.Uniform{Min: 0, Max: 255, Src: rng}
	b := tensor.Zeros(n, c, size, size)
	for i := range b.Data {
		b.Data[i] = float32(dist.Rand())
	}
	b.Device = dev
	return b
}
