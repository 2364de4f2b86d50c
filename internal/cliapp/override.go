package cliapp

import "github.com/abworrall/rawburst/internal/rawburst"

// OverrideContainer wraps a rawburst.Container, substituting the settings
// and writeDNG flag from a PipelineConfig loaded on the command line,
// mirroring how cmd/eclipse-hdr/eclipse-hdr.go lets flags win over
// whatever a loaded config file already specified.
type OverrideContainer struct {
	rawburst.Container
	Config rawburst.PipelineConfig
}

func (o OverrideContainer) GetPostProcessSettings() rawburst.PostProcessSettings {
	return o.Config.Settings
}

func (o OverrideContainer) GetWriteDNG() bool {
	return o.Config.WriteDNG
}
