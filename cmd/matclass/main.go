package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"udim-matclass/internal/batch"
	"udim-matclass/internal/classify"
	"udim-matclass/internal/config"
	"udim-matclass/internal/gltfio"
	"udim-matclass/internal/logger"
	"udim-matclass/internal/preview"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to a YAML or JSON config file")
	input := flag.String("in", "", "Input model (.gltf or .glb)")
	output := flag.String("out", "", "Output model (default: <in>_classified.<ext>)")
	mode := flag.String("mode", "", "Classifier: color or alpha (default: color)")
	textures := flag.String("textures", "", "Directory of UDIM tiles named <tile>_<name>.<ext>")
	uvChannel := flag.String("uv", "", "UV channel sampled in color mode (default: UVChannel_2)")
	previewDir := flag.String("preview", "", "Write WebP bucket previews of every tile to this directory")
	reportPath := flag.String("report", "", "Write a JSON run report to this path")
	logFile := flag.String("log-file", "", "Also log to this rotated file")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Load config
	var cfg config.Config
	baseDir := ""
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		baseDir = filepath.Dir(*configFile)
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		Input:      *input,
		Output:     *output,
		TextureDir: *textures,
		PreviewDir: *previewDir,
		ReportPath: *reportPath,
		Mode:       *mode,
		UVChannel:  *uvChannel,
		LogFile:    *logFile,
		Debug:      *debug,
	}, baseDir)

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	if err := cfg.Validate(); err != nil {
		fail(fmt.Errorf("%w: %w", batch.ErrConfiguration, err))
	}

	palette, err := classify.PaletteFromNames(cfg.Palette)
	if err != nil {
		fail(fmt.Errorf("%w: %w", batch.ErrConfiguration, err))
	}
	opts := batch.Options{
		UVChannel: cfg.UVChannel,
		Rules:     classify.Rules{Threshold: *cfg.Threshold},
		Palette:   palette,
		Logger:    log,
	}
	opts.Decoder.Scale = cfg.AlphaScale

	doc, err := gltfio.Open(cfg.Input, log)
	if err != nil {
		fail(fmt.Errorf("%w: %w", batch.ErrConfiguration, err))
	}

	fmt.Printf("UDIM material classifier (%s mode)\n", cfg.Mode)
	fmt.Printf("Input: %s (%d meshes)\n", cfg.Input, len(doc.Meshes))
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	var rep batch.Report
	switch cfg.Mode {
	case batch.ModeColor:
		atlas, stats, err := batch.LoadAtlas(cfg.TextureDir, cfg.Extensions, log)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Textures: %d tiles loaded from %s\n", stats.Loaded, cfg.TextureDir)
		if n := stats.Rejected + stats.Undecodable; n > 0 {
			fmt.Printf("Textures: %d excluded (%d without tile id, %d undecodable)\n",
				n, stats.Rejected, stats.Undecodable)
		}

		if cfg.PreviewDir != "" {
			paths, err := preview.WriteAtlas(cfg.PreviewDir, atlas, opts.Rules, cfg.PreviewMax, log)
			if err != nil {
				log.Warn("preview write failed", zap.Error(err))
			}
			fmt.Printf("Previews: %d written to %s\n", len(paths), cfg.PreviewDir)
		}

		rep, err = batch.RunColor(doc.Meshes, atlas, opts)
		if err != nil {
			fail(err)
		}
		rep.AddTextures(stats)
	case batch.ModeAlpha:
		rep, err = batch.RunAlpha(doc.Meshes, opts)
		if err != nil {
			fail(err)
		}
	}

	if err := doc.Save(cfg.Output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())
	fmt.Printf("Meshes: %d processed, %d skipped\n", rep.MeshesProcessed, rep.MeshesSkipped)
	fmt.Printf("Faces:  %d assigned, %d unassigned\n", rep.FacesAssigned, rep.FacesUnassigned)

	if rep.MeshesSkipped > 0 {
		fmt.Printf("\nSkipped (%d):\n", rep.MeshesSkipped)
		for _, m := range rep.Meshes {
			if m.Skipped {
				fmt.Printf("  %s: %s\n", m.Name, m.Reason)
			}
		}
	}
	fmt.Printf("Output: %s\n", cfg.Output)

	if cfg.ReportPath != "" {
		if err := batch.WriteReport(cfg.ReportPath, rep); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: report write failed: %v\n", err)
		} else {
			fmt.Printf("Report: %s\n", cfg.ReportPath)
		}
	}
}

// fail reports a run that was cancelled before anything was written.
func fail(err error) {
	if errors.Is(err, batch.ErrConfiguration) {
		fmt.Fprintf(os.Stderr, "Cancelled, nothing written: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	logger.Sync()
	os.Exit(1)
}
