package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"fracturemask/internal/logger"
	"fracturemask/pkg/config"
	"fracturemask/pkg/dataset"
	"fracturemask/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "config.yaml", "YAML configuration file (defaults are used if it does not exist)")
	createConfig := flag.Bool("create-config", false, "Write the default configuration to -config and exit")
	images := flag.String("image", "", "Comma-separated image file names from the annotation catalog")
	mode := flag.String("mode", "", "Thresholding mode: hard or soft (overrides config)")
	lower := flag.Float64("percentile", -1, "Lower coefficient magnitude percentile (overrides config)")
	upper := flag.Float64("upper-percentile", -1, "Upper coefficient magnitude percentile, 0 for none (overrides config)")
	binarize := flag.Float64("binarize", -1, "Reconstruction binarization percentile (overrides config)")
	saveIntermediary := flag.Bool("save-intermediary", false, "Save intermediary results during processing")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *createConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Command line overrides
	if *mode != "" {
		cfg.Threshold.Mode = *mode
	}
	if *lower >= 0 {
		cfg.Threshold.LowerPercentile = *lower
	}
	if *upper >= 0 {
		cfg.Threshold.UpperPercentile = *upper
	}
	if *binarize >= 0 {
		cfg.Binarize.Percentile = *binarize
	}
	if *saveIntermediary {
		cfg.Output.SaveIntermediaryResults = true
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid options: %v\n", err)
		os.Exit(1)
	}

	names := imageNames(*images, flag.Args())
	if len(names) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	level := zerolog.InfoLevel
	if cfg.Output.Verbose {
		level = zerolog.DebugLevel
	}
	log := logger.NewConsoleLogger(level)

	if err := run(cfg, names, log); err != nil {
		log.Error("main", err, nil)
		os.Exit(1)
	}
}

func run(cfg *config.Config, names []string, log logger.Logger) error {
	catalog, err := dataset.LoadCatalog(cfg.AnnotationsPath(), dataset.MatchField(cfg.Dataset.MatchField))
	if err != nil {
		return err
	}
	log.Info("main", "annotation catalog loaded", map[string]interface{}{
		"path": cfg.AnnotationsPath(), "images": catalog.Len(), "duplicates": catalog.Duplicates(),
	})

	params, err := pipeline.ParamsFromConfig(cfg)
	if err != nil {
		return err
	}
	evaluator, err := pipeline.NewEvaluator(params, log)
	if err != nil {
		return err
	}
	loader := pipeline.NewLoader(catalog, cfg.ImagePath, cfg.Canonical.Channel)

	fmt.Println("================================")
	fmt.Println("FRACTURE LOCALIZATION BY SHEARLET COEFFICIENT THRESHOLDING")
	fmt.Printf("mode=%s percentile=[%.1f, %.1f] binarize=%.1f window=%dx%d\n",
		params.Mode, params.LowerPercentile, params.UpperPercentile, params.BinarizePercentile,
		params.Side, params.Side)
	fmt.Println("================================")

	table := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(table, "image\tIoU(seg)\tFN\tFP\tIoU(box)\tFN\tFP\tretained\tRMSE\tSSIM\ttime")

	start := time.Now()
	failed := 0
	for _, name := range names {
		sample, err := loader.Load(name)
		if err == nil {
			err = evaluator.Process(sample)
		}
		if err != nil {
			failed++
			log.Error("main", err, map[string]interface{}{"image": name})
			continue
		}

		m := evaluator.GetMetrics()
		fmt.Fprintf(table, "%s\t%s\t%d\t%d\t%s\t%d\t%d\t%d/%d\t%.3f\t%.3f\t%s\n",
			name,
			iou(m.Segmentation.IoU, m.Segmentation.Defined), m.Segmentation.FalseNegatives, m.Segmentation.FalsePositives,
			iou(m.Box.IoU, m.Box.Defined), m.Box.FalseNegatives, m.Box.FalsePositives,
			m.Retained, m.Coefficients, m.Fidelity.RMSE, m.Fidelity.SSIM,
			m.Elapsed.Round(time.Millisecond))
	}
	table.Flush()

	fmt.Printf("\nEvaluated %d of %d images in %.2f seconds\n", len(names)-failed, len(names), time.Since(start).Seconds())
	if cfg.Output.SaveIntermediaryResults {
		fmt.Printf("Intermediary results saved to: %s\n", cfg.Output.IntermediaryDir)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(names))
	}
	return nil
}

func imageNames(list string, args []string) []string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return append(names, args...)
}

func iou(v float64, defined bool) string {
	if !defined {
		return "undefined"
	}
	return fmt.Sprintf("%.4f", v)
}
