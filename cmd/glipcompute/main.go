// Command glipcompute runs built-in processing pipelines over image files.
//
// Usage:
//
//	glipcompute -demo blur -in photo.png -out blurred.png -sigma 3
//	glipcompute -demo life -n 100 -out board.png
//	glipcompute -config glip.toml -demo color -in photo.jpg -out sepia.tiff
//
// Settings come from the TOML file given with -config, then from flags.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	glip "github.com/ronan-kerviche/glip-lib-sub003"
	"github.com/ronan-kerviche/glip-lib-sub003/backend"
	_ "github.com/ronan-kerviche/glip-lib-sub003/backend/cpu"
	"github.com/ronan-kerviche/glip-lib-sub003/codec/imageio"
	"github.com/ronan-kerviche/glip-lib-sub003/format"
	"github.com/ronan-kerviche/glip-lib-sub003/pipeline"
)

type cliOpts struct {
	configFile string
	dumpConfig string
	demo       string
	input      string
	output     string
	verbose    bool
	list       bool
	conf       config
}

// parseCLIOpts reads the configuration file named by -config, then applies
// the flags that were set explicitly.
func parseCLIOpts(args []string, stderr io.Writer) (cliOpts, error) {
	var opt cliOpts
	var flags config
	fs := flag.NewFlagSet("glipcompute", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opt.configFile, "config", "", "TOML configuration file")
	fs.StringVar(&opt.dumpConfig, "dump-config", "", "Write the effective configuration to this file (- for stdout) and exit")
	fs.StringVar(&opt.demo, "demo", "life", "Pipeline to run: "+strings.Join(demoNames(), ", "))
	fs.StringVar(&opt.input, "in", "", "Input image (png, jpeg, bmp, tiff, pgm, ppm)")
	fs.StringVar(&opt.output, "out", "out.png", "Output image")
	fs.BoolVar(&opt.verbose, "log", false, "Print debugging output to stderr")
	fs.BoolVar(&opt.list, "l", false, "List available backends and exit")
	fs.StringVar(&flags.Backend, "backend", "", "Backend name; empty picks the best available")
	fs.IntVar(&flags.Workers, "workers", 0, "CPU backend workers; 0 uses every CPU")
	fs.IntVar(&flags.Life.Width, "width", 0, "Life board width")
	fs.IntVar(&flags.Life.Height, "height", 0, "Life board height")
	fs.IntVar(&flags.Life.Generations, "n", 0, "Life generations")
	fs.Float64Var(&flags.Blur.Sigma, "sigma", 0, "Blur standard deviation in pixels")
	fs.StringVar(&flags.Color.Preset, "preset", "", "Color matrix preset")
	fs.Float64Var(&flags.Color.Amount, "amount", 0, "Color matrix preset amount")
	fs.Float64Var(&flags.Threshold.Level, "level", 0, "Threshold level")
	fs.IntVar(&flags.Output.Quality, "quality", 0, "JPEG quality")
	if err := fs.Parse(args); err != nil {
		return cliOpts{}, err
	}
	if fs.NArg() > 0 {
		return cliOpts{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opt.conf = defaultConfig()
	if opt.configFile != "" {
		conf, err := readConfig(opt.configFile)
		if err != nil {
			return cliOpts{}, err
		}
		opt.conf = conf
	}

	fs.Visit(func(f *flag.Flag) {
		c := &opt.conf
		switch f.Name {
		case "backend":
			c.Backend = flags.Backend
		case "workers":
			c.Workers = flags.Workers
		case "width":
			c.Life.Width = flags.Life.Width
		case "height":
			c.Life.Height = flags.Life.Height
		case "n":
			c.Life.Generations = flags.Life.Generations
		case "sigma":
			c.Blur.Sigma = flags.Blur.Sigma
		case "preset":
			c.Color.Preset = flags.Color.Preset
		case "amount":
			c.Color.Amount = flags.Color.Amount
		case "level":
			c.Threshold.Level = flags.Threshold.Level
		case "quality":
			c.Output.Quality = flags.Output.Quality
		}
	})
	if err := opt.conf.validate(); err != nil {
		return cliOpts{}, err
	}
	if _, ok := demos[opt.demo]; !ok {
		return cliOpts{}, fmt.Errorf("unknown demo %q (available: %s)", opt.demo, strings.Join(demoNames(), ", "))
	}
	return opt, nil
}

func main() {
	opt, err := parseCLIOpts(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "glipcompute: %v\n", err)
		os.Exit(2)
	}
	if err := run(opt); err != nil {
		fmt.Fprintf(os.Stderr, "glipcompute: %v\n", err)
		os.Exit(1)
	}
}

func run(opt cliOpts) error {
	if opt.verbose {
		glip.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if opt.dumpConfig != "" {
		return writeConfig(opt.dumpConfig, &opt.conf)
	}
	if opt.list {
		for _, name := range backend.Available() {
			fmt.Println(name)
		}
		return nil
	}

	d := demos[opt.demo]
	var desc format.Descriptor
	var data []byte
	if opt.input != "" {
		var err error
		desc, data, err = imageio.Load(opt.input)
		if err != nil {
			return err
		}
	} else if d.needsInput {
		return fmt.Errorf("demo %s needs an input image (-in)", opt.demo)
	}

	dev, err := backend.Open(backend.Config{Backend: opt.conf.Backend, Workers: opt.conf.Workers})
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()
	info := dev.Info()
	glip.Logger().Info("glipcompute: device opened", "adapter", info.Name, "type", info.Type)

	ctx, err := pipeline.NewContext(dev)
	if err != nil {
		return err
	}
	defer func() { _ = ctx.Close() }()

	desc, data, err = d.run(ctx, &opt.conf, desc, data)
	if err != nil {
		return err
	}
	if err := imageio.Save(opt.output, desc, data, imageio.WithQuality(opt.conf.Output.Quality)); err != nil {
		return err
	}
	glip.Logger().Info("glipcompute: saved", "path", opt.output, "format", desc.String())
	return nil
}
