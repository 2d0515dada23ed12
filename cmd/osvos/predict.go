package main

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
	"go.uber.org/zap"

	"github.com/sugarme/osvos/imgutil"
	"github.com/sugarme/osvos/osvos"
)

var (
	predictWeights string
	predictOut     string
	predictSides   bool
	predictOverlay bool
)

var predictCmd = &cobra.Command{
	Use:   "predict [images...]",
	Short: "Predict foreground masks",
	Long: `Runs the network on every image and writes the thresholded fused
output as <out>/<name>.png at the original image size. With --sides
the side score maps are written as <name>_side<i>.png, with --overlay
the mask is painted over the image as <name>_overlay.png.

Example:
  osvos predict --weights models/osvos_blackswan.ot --out masks frames/*.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVarP(&predictWeights, "weights", "w", "", "OSVOS .ot file (default from config)")
	predictCmd.Flags().StringVarP(&predictOut, "out", "o", "masks", "output directory")
	predictCmd.Flags().BoolVar(&predictSides, "sides", false, "also write the side score maps (default from config)")
	predictCmd.Flags().BoolVar(&predictOverlay, "overlay", false, "also write the mask over the image (default from config)")
}

func runPredict(cmd *cobra.Command, args []string) error {
	netCfg, err := cfg.Model.OSVOS()
	if err != nil {
		return err
	}
	weights := predictWeights
	if weights == "" {
		weights = cfg.Weights.Model
	}
	if cmd.Flags().Changed("sides") {
		cfg.Predict.Sides = predictSides
	}
	if cmd.Flags().Changed("overlay") {
		cfg.Predict.Overlay = predictOverlay
	}

	device := cfg.Model.GetDevice()
	vs := nn.NewVarStore(device)
	net, err := osvos.New(vs.Root(), netCfg, osvos.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := (osvos.FileLoader{Path: weights}).Load(vs); err != nil {
		return err
	}
	logger.Debug("loaded weights", zap.String("path", weights))

	for _, path := range args {
		if err := predictImage(net, device, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// probabilities returns sigmoid(x) of a [1 1 H W] score map.
func probabilities(x *ts.Tensor) []float64 {
	p := x.MustSigmoid(false).MustTo(gotch.CPU, true)
	defer p.MustDrop()
	return p.Float64Values()
}

func predictImage(net *osvos.OSVOS, device gotch.Device, path string) error {
	img, err := imgutil.ReadImage(path)
	if err != nil {
		return err
	}
	orig := img.Bounds()
	in := imgutil.Fit(img, cfg.Predict.Size)
	h, w := in.Bounds().Dy(), in.Bounds().Dx()

	x := imgutil.ToTensor(in).MustTo(device, true)
	defer x.MustDrop()

	var outs []*ts.Tensor
	ts.NoGrad(func() {
		outs = net.ForwardT(x, false)
	})
	defer func() {
		for _, o := range outs {
			o.MustDrop()
		}
	}()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	fused := outs[len(outs)-1]
	mask := imgutil.MaskImage(probabilities(fused), h, w, cfg.Predict.Threshold)
	mask = imgutil.ResizeMask(mask, orig.Dx(), orig.Dy())

	maskPath := filepath.Join(predictOut, name+".png")
	if err := imgutil.SaveImage(mask, maskPath); err != nil {
		return err
	}

	if cfg.Predict.Sides {
		for i, side := range outs[:len(outs)-1] {
			p := imgutil.ProbImage(probabilities(side), h, w)
			sidePath := filepath.Join(predictOut, fmt.Sprintf("%s_side%d.png", name, i+1))
			if err := imgutil.SaveImage(p, sidePath); err != nil {
				return err
			}
		}
	}

	if cfg.Predict.Overlay {
		overlay := imgutil.Overlay(img, mask, color.NRGBA{G: 255, A: 255})
		if err := imgutil.SaveImage(overlay, filepath.Join(predictOut, name+"_overlay.png")); err != nil {
			return err
		}
	}

	logger.Info("predicted mask",
		zap.String("image", path),
		zap.String("mask", maskPath),
		zap.Int("height", orig.Dy()),
		zap.Int("width", orig.Dx()))

	return nil
}
