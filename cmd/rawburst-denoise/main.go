package main

import (
	"flag"
	"log"

	"github.com/abworrall/rawburst/internal/cliapp"
	"github.com/abworrall/rawburst/internal/container/dirtiff"
	"github.com/abworrall/rawburst/internal/pipeline"
	"github.com/abworrall/rawburst/internal/rawburst"
)

var (
	fInputDir   string
	fOutputPath string
	fConfigPath string
	fDebugDir   string
)

func init() {
	flag.StringVar(&fInputDir, "burst", "", "directory holding manifest.json plus <frameID>.tif/.json frames")
	flag.StringVar(&fOutputPath, "out", "denoised.jpg", "output JPEG path (a sibling .dng is written too, if the burst asks for it)")
	flag.StringVar(&fConfigPath, "config", "", "optional YAML PipelineConfig overriding the burst's own settings")
	flag.StringVar(&fDebugDir, "debug-viz", "", "if set, dump intermediate wavelet/denoise grids as PNGs into this directory")
	flag.Parse()

	log.Printf("rawburst-denoise starting\n")
}

func main() {
	if fInputDir == "" {
		log.Fatal("rawburst-denoise: -burst is required")
	}

	dirContainer, err := dirtiff.Open(fInputDir)
	if err != nil {
		log.Fatal(err)
	}

	var container rawburst.Container = dirContainer
	if fConfigPath != "" {
		cfg, err := rawburst.LoadPipelineConfig(fConfigPath)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("rawburst-denoise: loaded override config:\n%s\n", cfg)
		container = cliapp.OverrideContainer{Container: dirContainer, Config: cfg}
		if cfg.OutputPath != "" {
			fOutputPath = cfg.OutputPath
		}
	}

	d := pipeline.New(cliapp.PlainDNGWriter{}, cliapp.JPEGEmbedder{}, cliapp.LogProgressListener{})
	d.DebugDir = fDebugDir
	if err := d.Process(container, fOutputPath); err != nil {
		log.Fatal(err)
	}
}
