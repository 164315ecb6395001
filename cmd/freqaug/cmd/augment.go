package cmd

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/freqaug/internal/augment"
	"github.com/MeKo-Tech/freqaug/internal/dataset"
	"github.com/MeKo-Tech/freqaug/internal/tensor"
	"github.com/MeKo-Tech/freqaug/internal/utils"
)

func newAugmentCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "augment <files|dirs...>",
		Short: "Augment image files and write the results",
		Long: `Load images into a (N,3,S,S) batch with values in 0..255, apply one
augmentation and write every augmented sample next to the others in the
output directory as <base>_aug<k>.<format>.

Mix variants need a reference batch: --reference names files or a directory
whose images are cycled to the input batch size.

Examples:
  freqaug augment frame.png --variant mask-ring
  freqaug augment frames/ --variant mix-band-2 --reference other/ --repeat 4
  freqaug augment frames/ --variant overlay --overlay-dir places365/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAugment(cmd, args)
		},
	}

	f := cmd.Flags()
	f.String("variant", "mask-square", "augmentation variant (see 'freqaug variants')")
	f.Float64("freq-alpha", 1.0, "upper bound of the mix coefficient; the coefficient of mix-fixed")
	f.String("device", "cpu", "device handle attached to the batch")
	f.Uint64("seed", 0, "random seed (0 draws a random seed)")
	f.Int("size", 84, "square side the images are resized to")
	f.String("overlay-dir", "", "image folder sampled by the overlay variant")
	f.String("out", "augmented", "output directory")
	f.String("format", "png", "output format (png, jpg, bmp)")
	f.StringSlice("reference", nil, "reference images or directories for mix variants")
	f.Int("repeat", 1, "number of augmented copies per image")
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.StringSlice("include", nil, "only use files whose name matches one of these patterns")
	f.StringSlice("exclude", nil, "skip files whose name matches one of these patterns")
	return cmd
}

func discoverOptions(cmd *cobra.Command) utils.DiscoverOptions {
	recursive, _ := cmd.Flags().GetBool("recursive")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	return utils.DiscoverOptions{Recursive: recursive, Include: include, Exclude: exclude}
}

func (a *app) runAugment(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	variant, err := cfg.Variant()
	if err != nil {
		return err
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	repeat, _ := cmd.Flags().GetInt("repeat")
	if repeat < 1 {
		return fmt.Errorf("invalid --repeat %d (must be at least 1)", repeat)
	}
	discover := discoverOptions(cmd)
	size := cfg.Augment.ImageSize

	files, err := utils.DiscoverImages(args, discover)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no supported images found")
	}
	x, err := loadBatch(files, size, engineCfg.Device)
	if err != nil {
		return err
	}

	var x2 *tensor.Batch
	if variant.Family() == augment.FamilyMix {
		refs, _ := cmd.Flags().GetStringSlice("reference")
		if len(refs) == 0 {
			return fmt.Errorf("variant %s needs --reference images", variant)
		}
		refFiles, err := utils.DiscoverImages(refs, discover)
		if err != nil {
			return err
		}
		if len(refFiles) == 0 {
			return errors.New("no supported reference images found")
		}
		x2, err = loadBatch(cycle(refFiles, len(files)), size, engineCfg.Device)
		if err != nil {
			return err
		}
	}

	seed := cfg.Augment.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	opts := []augment.Option{augment.WithSeed(seed), augment.WithLogger(a.logger)}
	if cfg.Overlay.Dir != "" {
		opts = append(opts, augment.WithOverlaySource(dataset.NewFolder(cfg.Overlay.Dir,
			dataset.WithExtensions(cfg.Overlay.Extensions...),
			dataset.WithRand(rand.New(rand.NewPCG(seed, seed+1))),
			dataset.WithLogger(a.logger))))
	}
	eng := augment.NewEngine(engineCfg, opts...)

	a.logger.Info("augmenting images",
		"images", len(files), "variant", variant.String(), "repeat", repeat, "seed", seed)

	format := cfg.Output.Format
	if format == "" {
		format = "png"
	}
	applied, skipped, written := 0, 0, 0
	for k := range repeat {
		res, err := eng.Transform(x, x2, variant)
		if err != nil {
			return fmt.Errorf("augment: %w", err)
		}
		if res.Applied {
			applied++
		} else {
			skipped++
		}
		a.logger.Debug("transform", "round", k, "applied", res.Applied, "params", res.Params)

		for n, path := range files {
			imgs, err := utils.BatchToImages(res.Batch, n, utils.PixelScale)
			if err != nil {
				return err
			}
			dst := filepath.Join(cfg.Output.Dir, outputName(path, k, format))
			if err := utils.SaveImage(imgs[0], dst); err != nil {
				return err
			}
			written++
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Variant: %s\n", variant)
	_, _ = fmt.Fprintf(out, "Images: %d, rounds: %d, applied: %d, skipped: %d\n", len(files), repeat, applied, skipped)
	_, _ = fmt.Fprintf(out, "Wrote %d files to %s\n", written, cfg.Output.Dir)
	return nil
}

// loadBatch loads files as one (N,3,size,size) batch in 0..255.
func loadBatch(files []string, size int, dev tensor.Device) (*tensor.Batch, error) {
	imgs, err := utils.LoadImages(files, size, size)
	if err != nil {
		return nil, err
	}
	b, err := utils.ImagesToBatch(imgs, 1, utils.PixelScale)
	if err != nil {
		return nil, err
	}
	b.Device = dev
	return b, nil
}

// cycle repeats paths until there are n of them.
func cycle(paths []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = paths[i%len(paths)]
	}
	return out
}

func outputName(path string, k int, format string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return fmt.Sprintf("%s_aug%d.%s", base, k, format)
}
