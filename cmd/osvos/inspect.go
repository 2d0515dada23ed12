package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"
	"github.com/sugarme/gotch/nn"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sugarme/osvos/osvos"
)

var (
	inspectWeights string
	inspectCSV     string
	inspectHist    string
	inspectPlot    string
	inspectBins    int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize the variables of an OSVOS weight file",
	Long: `Prints name, shape, size, mean and standard deviation of every
variable of the network. Without --weights the freshly initialized
network is summarized, which shows the initialization policy at work.

Example:
  osvos inspect --weights models/osvos_parent.ot --csv vars.csv
  osvos inspect --hist stages.0.0.weight --plot init.png`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectWeights, "weights", "w", "", "OSVOS .ot file (default: random initialization)")
	inspectCmd.Flags().StringVar(&inspectCSV, "csv", "", "write the summary as CSV to this file")
	inspectCmd.Flags().StringVar(&inspectHist, "hist", "", "variable to plot a histogram of")
	inspectCmd.Flags().StringVar(&inspectPlot, "plot", "histogram.png", "histogram output file")
	inspectCmd.Flags().IntVar(&inspectBins, "bins", 50, "number of histogram bins")
}

// VarSummary is one row of the inspect table.
type VarSummary struct {
	Name  string
	Shape string
	Numel int
	Mean  float64
	Std   float64
}

func summarize(vs *nn.VarStore) ([]VarSummary, map[string][]float64) {
	vars := vs.Variables()
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)

	rows := make([]VarSummary, 0, len(names))
	values := make(map[string][]float64, len(names))
	for _, n := range names {
		v := vars[n]
		vals := v.Float64Values()
		mean, std := stat.MeanStdDev(vals, nil)
		if len(vals) < 2 {
			std = 0
		}
		size := v.MustSize()
		dims := make([]string, len(size))
		for i, d := range size {
			dims[i] = fmt.Sprint(d)
		}
		rows = append(rows, VarSummary{
			Name:  n,
			Shape: strings.Join(dims, "x"),
			Numel: len(vals),
			Mean:  mean,
			Std:   std,
		})
		values[n] = vals
	}
	return rows, values
}

func runInspect(cmd *cobra.Command, args []string) error {
	netCfg, err := cfg.Model.OSVOS()
	if err != nil {
		return err
	}

	vs := nn.NewVarStore(cfg.Model.GetDevice())
	if _, err := osvos.New(vs.Root(), netCfg, osvos.WithLogger(logger)); err != nil {
		return err
	}
	if inspectWeights != "" {
		if err := (osvos.FileLoader{Path: inspectWeights}).Load(vs); err != nil {
			return err
		}
	}

	rows, values := summarize(vs)
	df := dataframe.LoadStructs(rows)
	if df.Err != nil {
		return df.Err
	}
	fmt.Fprintln(cmd.OutOrStdout(), df.String())

	if inspectCSV != "" {
		f, err := os.Create(inspectCSV)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := df.WriteCSV(f); err != nil {
			return fmt.Errorf("writing %q: %w", inspectCSV, err)
		}
		logger.Info("wrote variable summary", zap.String("path", inspectCSV), zap.Int("rows", len(rows)))
	}

	if inspectHist != "" {
		vals, ok := values[inspectHist]
		if !ok {
			return fmt.Errorf("no variable %q", inspectHist)
		}
		if err := plotHistogram(inspectHist, vals, inspectBins, inspectPlot); err != nil {
			return err
		}
		logger.Info("wrote histogram", zap.String("variable", inspectHist), zap.String("path", inspectPlot))
	}

	return nil
}

func plotHistogram(name string, vals []float64, bins int, path string) error {
	p, err := plot.New()
	if err != nil {
		return err
	}

	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return err
	}
	p.Title.Text = name
	p.X.Label.Text = "value"
	p.Add(h)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
