// wg3dtool converts glTF 2.0 assets into the WG3D intermediate model.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/wg3d/internal/assets"
	"github.com/Faultbox/wg3d/internal/config"
	"github.com/Faultbox/wg3d/internal/export"
	"github.com/Faultbox/wg3d/internal/logger"
	"github.com/Faultbox/wg3d/pkg/convert"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "convert", "c":
		return cmdConvert(args, stdout, stderr)
	case "inspect", "info":
		return cmdInspect(args, stdout, stderr)
	case "config":
		return cmdConfig(args, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `wg3dtool - glTF to WG3D model converter

Usage:
  wg3dtool <command> [options]

Commands:
  convert [options] <file...>   Convert .gltf/.glb files to .wg3d.json
  inspect [options] <file>      Convert in memory and print a summary
  config [options] [path]       Save the effective config (default: user config dir)

Options:
  -config <path>    Config file (default ./wg3d.yaml or user config dir)
  -basis <name>     none or y_up_rotate_180
  -weights <name>   float or fixed16
  -o <dir>          Output directory (default: next to the input)
  -pretty           Indent JSON output
  -infer-root       Infer skeleton roots for skins that declare none
  -debug            Enable debug logging
  -log-file <path>  Also log to a rotating file

Examples:
  wg3dtool convert -basis y_up_rotate_180 hero.glb
  wg3dtool convert -o build -weights fixed16 models/*.gltf
  wg3dtool inspect hero.glb
  wg3dtool config -basis y_up_rotate_180 wg3d.yaml`)
}

// setup parses subcommand flags, loads the config and initializes logging.
func setup(name string, args []string, stderr io.Writer) (*config.Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := config.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, fs.Args(), nil
}

// convertFile loads and converts one asset.
func convertFile(m *assets.Manager, path string, cfg *config.Config) (*convert.Model, error) {
	opts, err := cfg.Convert.Options()
	if err != nil {
		return nil, err
	}

	asset, err := m.Open(path)
	if err != nil {
		return nil, err
	}

	opts.Images = asset
	opts.Inspector = assets.Inspector{}
	opts.Logger = logger.ForFile(path)

	model, err := convert.Convert(asset.Doc, asset.Buffers, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return model, nil
}

func cmdConvert(args []string, stdout, stderr io.Writer) int {
	cfg, files, err := setup("convert", args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if len(files) == 0 {
		fmt.Fprintln(stderr, "Usage: wg3dtool convert [options] <file...>")
		return 1
	}

	m := assets.NewManager()
	defer m.Close()

	var errs error
	converted := 0
	for _, path := range files {
		model, err := convertFile(m, path, cfg)
		if err != nil {
			logger.Error("conversion failed",
				zap.String("file", path),
				zap.Stringer("kind", convert.Kind(err)),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
			continue
		}

		out := export.OutputPath(path, cfg.Convert.OutputDir)
		if err := export.WriteFile(out, model, cfg.Convert.Pretty); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: writing %s: %w", path, out, err))
			continue
		}
		converted++
		logger.Info("converted", zap.String("file", path), zap.String("output", out))
		fmt.Fprintf(stdout, "%s -> %s\n", path, out)
	}

	hits, misses, cached := m.Stats()
	logger.Debug("file cache",
		zap.Int("hits", hits),
		zap.Int("misses", misses),
		zap.Int("files", cached),
	)

	failed := multierr.Errors(errs)
	if len(failed) > 0 {
		fmt.Fprintf(stderr, "\n%d of %d files failed:\n", len(failed), len(files))
		for _, err := range failed {
			fmt.Fprintf(stderr, "  [%s] %v\n", convert.Kind(err), err)
		}
		return 1
	}

	fmt.Fprintf(stdout, "\n(%d files converted)\n", converted)
	return 0
}

func cmdInspect(args []string, stdout, stderr io.Writer) int {
	cfg, files, err := setup("inspect", args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if len(files) != 1 {
		fmt.Fprintln(stderr, "Usage: wg3dtool inspect [options] <file>")
		return 1
	}

	m := assets.NewManager()
	defer m.Close()

	model, err := convertFile(m, files[0], cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error [%s]: %v\n", convert.Kind(err), err)
		return 1
	}

	fmt.Fprintf(stdout, "File:       %s\n", files[0])
	fmt.Fprintf(stdout, "Basis:      %s\n", cfg.Convert.Basis)
	export.Summarize(model).Print(stdout)

	if len(model.Skeletons) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Skeletons:")
		for _, s := range model.Skeletons {
			fmt.Fprintf(stdout, "  %-20s %d joints, root node %d\n", s.Name, len(s.Joints), s.Root)
		}
	}
	if len(model.Animations) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Animations:")
		for _, a := range model.Animations {
			fmt.Fprintf(stdout, "  %-20s %d channels\n", a.Name, len(a.Channels))
		}
	}
	return 0
}

func cmdConfig(args []string, stdout, stderr io.Writer) int {
	cfg, rest, err := setup("config", args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	switch len(rest) {
	case 0:
		err = cfg.Save()
	case 1:
		err = cfg.SaveTo(rest[0])
	default:
		fmt.Fprintln(stderr, "Usage: wg3dtool config [options] [path]")
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: saving config: %v\n", err)
		return 1
	}

	path := filepath.Join(config.ConfigDir(), "config.yaml")
	if len(rest) == 1 {
		path = rest[0]
	}
	fmt.Fprintf(stdout, "Config written to %s\n", path)
	return 0
}
