package codegen

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// RunConfig is the CLI's run configuration: where to read the
// normalized IR from, where to write generated source, the network
// output tensor's name, and the EmitterConfig flags themselves. It is
// parsed the way the teacher parses transformers.Config — a raw map
// first, typed accessors with defaults second — so an unrecognized key
// in codegen.yaml is silently ignored rather than rejected (forward
// compatibility, same spirit as §4.B's unknown-attribute tolerance).
type RunConfig struct {
	raw map[string]any

	InputPath     string
	OutputPath    string
	NetworkOutput string
	EmitterConfig EmitterConfig
}

func getBool(raw map[string]any, key string, def bool) bool {
	v, ok := raw[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func getString(raw map[string]any, key, def string) string {
	v, ok := raw[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// LoadRunConfig mirrors Config.FromPretrained: read codegen.yaml if it
// exists (a missing file is not an error — every field falls back to
// its default), then apply EMITTER_DYNAMIC/EMITTER_COMM/EMITTER_LOG
// environment overrides, consulted last so they win over the file.
func LoadRunConfig(path string) (*RunConfig, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if uerr := yaml.Unmarshal(data, &raw); uerr != nil {
				return nil, uerr
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &RunConfig{
		raw:           raw,
		InputPath:     getString(raw, "input_path", ""),
		OutputPath:    getString(raw, "output_path", "out.zig"),
		NetworkOutput: getString(raw, "network_output", ""),
		EmitterConfig: EmitterConfig{
			Dynamic: getBool(raw, "dynamic", true),
			Comm:    getBool(raw, "comm", false),
			Log:     getBool(raw, "log", false),
		},
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *RunConfig) {
	if v, ok := os.LookupEnv("EMITTER_DYNAMIC"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EmitterConfig.Dynamic = b
		}
	}
	if v, ok := os.LookupEnv("EMITTER_COMM"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EmitterConfig.Comm = b
		}
	}
	if v, ok := os.LookupEnv("EMITTER_LOG"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EmitterConfig.Log = b
		}
	}
	if v, ok := os.LookupEnv("ONNX_CODEGEN_INPUT"); ok && v != "" {
		cfg.InputPath = v
	}
	if v, ok := os.LookupEnv("ONNX_CODEGEN_OUTPUT"); ok && v != "" {
		cfg.OutputPath = v
	}
}
