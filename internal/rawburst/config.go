package rawburst

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// PipelineConfig is the top-level configuration for a denoise run,
// loadable from YAML the same way estack/config.go and eclipse/config.go
// load their Configuration/Config types.
type PipelineConfig struct {
	OutputPath  string `yaml:"outputPath"`
	WriteDNG    bool   `yaml:"writeDNG"`
	Settings    PostProcessSettings `yaml:"settings"`
}

// NewPipelineConfig returns a config with the standard defaults filled
// in, matching NewConfiguration()/NewConfig() in pkg/eclipse/config.go.
func NewPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Settings: DefaultPostProcessSettings(),
	}
}

// LoadPipelineConfig reads and validates a YAML config file.
func LoadPipelineConfig(filename string) (PipelineConfig, error) {
	c := NewPipelineConfig()

	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return c, IOErrorf("read config "+filename, err)
	}
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, InvalidInputf("parse config "+filename, "%v", err)
	}

	return c, c.Finalize()
}

// Finalize does sanity checks and fills in remaining defaults, mirroring
// Configuration.FinalizeConfiguration in pkg/eclipse/config.go.
func (c *PipelineConfig) Finalize() error {
	if c.Settings.JpegQuality == 0 {
		c.Settings.JpegQuality = 95
	}
	if c.Settings.JpegQuality < 1 || c.Settings.JpegQuality > 100 {
		return InvalidInputf("finalize config", "jpegQuality %d out of range [1,100]", c.Settings.JpegQuality)
	}
	if c.Settings.WhitePoint == 0 {
		c.Settings.WhitePoint = 1.0
	}
	if c.Settings.WhitePoint < 0 || c.Settings.WhitePoint > 1 {
		return InvalidInputf("finalize config", "whitePoint %f out of range [0,1]", c.Settings.WhitePoint)
	}
	if c.Settings.Gamma == 0 {
		c.Settings.Gamma = 2.2
	}
	return nil
}

func (c PipelineConfig) String() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<config marshal error: %v>", err)
	}
	return string(b)
}
