package config

import "flag"

// Flags holds command-line overrides bound to one subcommand's FlagSet.
type Flags struct {
	config            *string
	debug             *bool
	logFile           *string
	basis             *string
	weights           *string
	outputDir         *string
	pretty            *bool
	inferSkeletonRoot *bool
}

// BindFlags registers the config flags on fs. Call fs.Parse before Load.
func BindFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:            fs.String("config", "", "Path to config file"),
		debug:             fs.Bool("debug", false, "Enable debug logging"),
		logFile:           fs.String("log-file", "", "Write logs to a rotating file"),
		basis:             fs.String("basis", "", "Coordinate basis: none or y_up_rotate_180"),
		weights:           fs.String("weights", "", "Joint weight encoding: float or fixed16"),
		outputDir:         fs.String("o", "", "Output directory"),
		pretty:            fs.Bool("pretty", false, "Indent JSON output"),
		inferSkeletonRoot: fs.Bool("infer-root", false, "Infer skeleton roots for skins that declare none"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.logFile != "" {
		cfg.Logging.LogFile = *f.logFile
	}
	if *f.basis != "" {
		cfg.Convert.Basis = *f.basis
	}
	if *f.weights != "" {
		cfg.Convert.WeightEncoding = *f.weights
	}
	if *f.outputDir != "" {
		cfg.Convert.OutputDir = *f.outputDir
	}
	if *f.pretty {
		cfg.Convert.Pretty = true
	}
	if *f.inferSkeletonRoot {
		cfg.Convert.InferSkeletonRoot = true
	}
}
