package config

import (
	"fmt"
	"strings"

	"github.com/paivett/gone/pkg/cli"
	"modernc.org/libqbe"
	"tlog.app/go/tlog"
)

type Feature int

const (
	FeatByte Feature = iota
	FeatCEsc
	FeatCComments
	FeatCount
)

type Warning int

const (
	WarnUnused Warning = iota
	WarnUnrecognizedEscape
	WarnOverflow
	WarnExtra
	WarnPedantic
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	Backend    string
	QbeTarget  string
	TargetArch string
	TargetOS   string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		Backend:    "qbe",
	}

	features := map[Feature]Info{
		FeatByte:      {"byte", false, "Enable the 'byte' primitive type."},
		FeatCEsc:      {"c-esc", true, "Recognize C-style '\\' escapes in character literals."},
		FeatCComments: {"c-comments", true, "Recognize C-style '//' line comments."},
	}

	warnings := map[Warning]Info{
		WarnUnused:             {"unused", true, "Warn about constants and variables that are never read."},
		WarnUnrecognizedEscape: {"u-esc", true, "Warn on unrecognized character escape sequences."},
		WarnOverflow:           {"overflow", true, "Warn when an integer literal does not fit in 32 bits."},
		WarnExtra:              {"extra", true, "Enable extra miscellaneous warnings."},
		WarnPedantic:           {"pedantic", false, "Issue all warnings, including stylistic ones."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget selects the backend and, for QBE, the target ABI. The target
// string is either a backend name ("qbe", "llvm") or "qbe/<abi>".
func (c *Config) SetTarget(goos, goarch, target string) error {
	c.TargetOS, c.TargetArch = goos, goarch

	backend, abi, _ := strings.Cut(target, "/")
	if backend == "" {
		backend = "qbe"
	}

	switch backend {
	case "qbe":
	case "llvm":
		if abi != "" {
			return fmt.Errorf("the llvm backend takes no target ABI, got '%s'", abi)
		}
	default:
		return fmt.Errorf("unsupported backend '%s'. Supported: 'qbe', 'llvm'", backend)
	}
	c.Backend = backend

	if abi == "" {
		c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
		tlog.V("target").Printw("no target specified, defaulting to host target", "backend", c.Backend, "qbe_target", c.QbeTarget)
		return nil
	}

	switch abi {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
	default:
		return fmt.Errorf("unrecognized or unsupported QBE target '%s'", abi)
	}
	c.QbeTarget = abi
	tlog.V("target").Printw("using specified target", "backend", c.Backend, "qbe_target", c.QbeTarget)
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// SetupFlagGroups registers -W<warning> and -F<feature> toggles on fs. The
// returned entries are indexed by Warning and Feature and are read back by
// ApplyFlagGroups once the command line has been parsed.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warningFlags, featureFlags []cli.FlagGroupEntry) {
	warningFlags = make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warningFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}

	featureFlags = make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		featureFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}

	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies parsed toggles from SetupFlagGroups into c. An
// explicit -Wno-/-Fno- wins over the positive form.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}

// ApplyFlag handles a single -W/-F style switch such as "-Wno-unused",
// "-Fbyte" or "-Wall".
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	if isNo {
		name = strings.TrimPrefix(name, "no-")
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			if i != WarnPedantic {
				c.SetWarning(i, enable)
			}
		}
		return nil
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
			return nil
		}
		return fmt.Errorf("unknown warning '%s'", name)
	}
	if f, ok := c.FeatureMap[name]; ok {
		c.SetFeature(f, enable)
		return nil
	}
	return fmt.Errorf("unknown feature '%s'", name)
}
