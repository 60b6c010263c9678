// Package config handles converter configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/wg3d/pkg/convert"
)

// Config holds all converter settings.
type Config struct {
	Convert ConvertConfig `yaml:"convert"`
	Logging LoggingConfig `yaml:"logging"`
}

// ConvertConfig holds conversion settings.
type ConvertConfig struct {
	Basis             string `yaml:"basis"`           // none | y_up_rotate_180
	WeightEncoding    string `yaml:"weight_encoding"` // float | fixed16
	OutputDir         string `yaml:"output_dir"`      // Empty writes next to the input
	Pretty            bool   `yaml:"pretty"`
	InferSkeletonRoot bool   `yaml:"infer_skeleton_root"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Convert: ConvertConfig{
			Basis:          convert.BasisNone.String(),
			WeightEncoding: convert.WeightsFloat.String(),
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate rejects unknown enum values.
func (c *Config) Validate() error {
	if _, err := convert.ParseBasis(c.Convert.Basis); err != nil {
		return fmt.Errorf("convert.basis: %w", err)
	}
	if _, err := convert.ParseWeightEncoding(c.Convert.WeightEncoding); err != nil {
		return fmt.Errorf("convert.weight_encoding: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Options returns the conversion options described by the convert section.
// Loaders, inspectors and loggers are left for the caller to attach.
func (c *ConvertConfig) Options() (convert.Options, error) {
	basis, err := convert.ParseBasis(c.Basis)
	if err != nil {
		return convert.Options{}, err
	}
	weights, err := convert.ParseWeightEncoding(c.WeightEncoding)
	if err != nil {
		return convert.Options{}, err
	}
	return convert.Options{
		Basis:             basis,
		WeightEncoding:    weights,
		InferSkeletonRoot: c.InferSkeletonRoot,
	}, nil
}
