package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/sugarme/gotch/nn"
	"go.uber.org/zap"

	"github.com/sugarme/osvos/osvos"
)

var (
	transplantVGG string
	transplantOut string
)

var transplantCmd = &cobra.Command{
	Use:   "transplant",
	Short: "Create OSVOS weights from ImageNet VGG16 weights",
	Long: `Builds the OSVOS network, copies the 13 convolutions of a VGG16
classifier into its backbone and saves the result as a gotch .ot file.
Side branches and the fusion layer keep their random initialization.

Example:
  osvos transplant --vgg models/vgg16.ot --out models/osvos_parent.ot`,
	Args: cobra.NoArgs,
	RunE: runTransplant,
}

func init() {
	transplantCmd.Flags().StringVar(&transplantVGG, "vgg", "", "VGG16 .ot file or URL (default from config)")
	transplantCmd.Flags().StringVarP(&transplantOut, "out", "o", "", "output .ot file (default from config)")
}

func runTransplant(cmd *cobra.Command, args []string) error {
	weights := cfg.Weights
	weights.Pretrained = true
	if transplantVGG != "" {
		weights.VGG = transplantVGG
	}
	out := transplantOut
	if out == "" {
		out = cfg.Weights.Model
	}

	netCfg, err := cfg.Model.OSVOS()
	if err != nil {
		return err
	}

	vs := nn.NewVarStore(cfg.Model.GetDevice())
	loader := weights.Loader()
	if _, err := osvos.New(vs.Root(), netCfg, osvos.WithPretrained(loader), osvos.WithLogger(logger)); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	if err := vs.Save(out); err != nil {
		return fmt.Errorf("saving %q: %w", out, err)
	}
	logger.Info("saved OSVOS weights", zap.String("path", out), zap.Int("variables", len(vs.Variables())))

	return nil
}
