package config

// Preset holds a named crawl configuration loaded from the preset file.
// Zero values mean "not set" and fall back to the defaults section, then
// to the built-in defaults.
type Preset struct {
	// Classes are the target class identifiers crawled as one job.
	Classes []string `yaml:"classes,omitempty"`

	// Radius overrides the hop radius for this preset.
	Radius int `yaml:"radius,omitempty"`

	// MaxInstances overrides the seed instance cap for this preset.
	MaxInstances int `yaml:"maxInstances,omitempty"`

	// Language overrides the label language tag for this preset.
	Language string `yaml:"language,omitempty"`

	// ExpandSubclasses overrides subclass expansion for this preset.
	// A pointer distinguishes "unset" from an explicit false.
	ExpandSubclasses *bool `yaml:"expandSubclasses,omitempty"`

	// FetchProperties overrides property enrichment for this preset.
	FetchProperties *bool `yaml:"fetchProperties,omitempty"`
}

// File represents the structure of the .wdcrawl configuration file.
type File struct {
	// Presets maps preset names to their crawl configurations.
	Presets map[string]Preset `yaml:"presets,omitempty"`

	// Defaults contains settings applied to all presets unless
	// overridden in the preset itself.
	Defaults Preset `yaml:"defaults,omitempty"`
}

// GetPreset returns the named preset merged with the defaults section.
// The second return value reports whether the preset exists.
func (f *File) GetPreset(name string) (Preset, bool) {
	preset, ok := f.Presets[name]
	if !ok {
		return Preset{}, false
	}
	return mergePreset(f.Defaults, preset), true
}

// mergePreset merges the defaults with preset-specific overrides.
// Non-zero preset values win; unset values inherit from defaults.
func mergePreset(defaults, override Preset) Preset {
	result := defaults

	if len(override.Classes) > 0 {
		result.Classes = override.Classes
	}
	if override.Radius > 0 {
		result.Radius = override.Radius
	}
	if override.MaxInstances > 0 {
		result.MaxInstances = override.MaxInstances
	}
	if override.Language != "" {
		result.Language = override.Language
	}
	if override.ExpandSubclasses != nil {
		result.ExpandSubclasses = override.ExpandSubclasses
	}
	if override.FetchProperties != nil {
		result.FetchProperties = override.FetchProperties
	}

	return result
}

// Apply overlays the preset's values onto the given Config.
// Only set values are applied; everything else keeps its current value.
func (p Preset) Apply(cfg *Config) {
	if len(p.Classes) > 0 {
		cfg.Targets = p.Classes
	}
	if p.Radius > 0 {
		cfg.Radius = p.Radius
	}
	if p.MaxInstances > 0 {
		cfg.MaxInstances = p.MaxInstances
	}
	if p.Language != "" {
		cfg.Language = p.Language
	}
	if p.ExpandSubclasses != nil {
		cfg.ExpandSubclasses = *p.ExpandSubclasses
	}
	if p.FetchProperties != nil {
		cfg.FetchProperties = *p.FetchProperties
	}
}
