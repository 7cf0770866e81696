package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the merged effective configuration as a flat map keyed by
// dotted path (e.g. "proposal.pools.balancer_company_currency.address").
// Layers merge lowest-precedence first; empty string values are treated as
// absent and never overwrite.
type Config struct {
	values map[string]string
}

// Sources describes where configuration layers come from, lowest
// precedence first: defaults, base .env, extra env file, JSON config file,
// process environment, CLI overrides.
type Sources struct {
	// BaseEnvPath is the always-loaded ".env" (ignored when missing).
	BaseEnvPath string
	// EnvFilePath is the per-proposal env file passed via --env.
	EnvFilePath string
	// JSONPath is the proposal config file passed via --config.
	JSONPath string
	// Environ is the process environment (os.Environ() form). Nil means
	// read from the process.
	Environ []string
	// Overrides are CLI-level dotted-path overrides, highest precedence.
	Overrides map[string]string
}

// Load merges all configured sources into an effective config.
// --config and --env are mutually exclusive; the caller enforces that at
// flag-parse time, Load just honours whichever is set.
func Load(src Sources) (*Config, error) {
	c := &Config{values: map[string]string{}}

	c.applyFlat(defaults())

	if src.BaseEnvPath != "" {
		if vars, err := godotenv.Read(src.BaseEnvPath); err == nil {
			c.applyEnvMap(vars)
		}
	}
	if src.EnvFilePath != "" {
		vars, err := godotenv.Read(src.EnvFilePath)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", src.EnvFilePath, err)
		}
		c.applyEnvMap(vars)
	}
	if src.JSONPath != "" {
		if err := c.applyJSONFile(src.JSONPath); err != nil {
			return nil, err
		}
	}

	environ := src.Environ
	if environ == nil {
		environ = os.Environ()
	}
	procEnv := environToMap(environ)
	c.applyEnvMap(procEnv)

	// Critical keys win over any file layer even when a later layer tried
	// to shadow them. The process env is authoritative for these.
	for _, key := range criticalEnvKeys {
		if v := procEnv[key]; v != "" {
			if path, ok := envToPath[key]; ok {
				c.values[path] = v
			}
		}
	}

	for path, v := range src.Overrides {
		if v != "" {
			c.values[path] = v
		}
	}

	return c, nil
}

// Get returns the value at a dotted path, or "" when absent.
func (c *Config) Get(path string) string {
	return c.values[path]
}

// Has reports whether a non-empty value exists at the dotted path.
func (c *Config) Has(path string) bool {
	return c.values[path] != ""
}

// Set stores a value at a dotted path. Empty values are ignored so a
// blank CLI flag never erases a lower layer.
func (c *Config) Set(path, value string) {
	if value != "" {
		c.values[path] = value
	}
}

// Paths returns all populated dotted paths in sorted order.
func (c *Config) Paths() []string {
	out := make([]string, 0, len(c.values))
	for k := range c.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Config) applyFlat(m map[string]string) {
	for k, v := range m {
		if v != "" {
			c.values[k] = v
		}
	}
}

// applyEnvMap folds a KEY=value mapping through the env catalogue into
// dotted paths. Unrecognised keys are ignored.
func (c *Config) applyEnvMap(vars map[string]string) {
	for key, v := range vars {
		if v == "" {
			continue
		}
		if path, ok := envToPath[key]; ok {
			c.values[path] = v
		}
	}
}

// applyJSONFile flattens the nested JSON config tree into dotted paths.
func (c *Config) applyJSONFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	flattenJSON("", tree, c.values)
	return nil
}

func flattenJSON(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			p := key
			if prefix != "" {
				p = prefix + "." + key
			}
			flattenJSON(p, child, out)
		}
	case string:
		if v != "" {
			out[prefix] = v
		}
	case bool:
		out[prefix] = fmt.Sprintf("%t", v)
	case float64:
		// JSON numbers: integers render without a fraction, the rest at
		// full precision.
		if v == float64(int64(v)) {
			out[prefix] = strconv.FormatInt(int64(v), 10)
		} else {
			out[prefix] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
}

func environToMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i > 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}
	return out
}

// DumpJSON renders the effective config as a nested JSON tree, for
// --dump-config. Secret values are included: the dump exists so external
// orchestration can verify precedence, and it is written where the
// operator points it.
func (c *Config) DumpJSON() ([]byte, error) {
	tree := map[string]any{}
	for path, v := range c.values {
		parts := strings.Split(path, ".")
		node := tree
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = v
	}
	return json.MarshalIndent(tree, "", "  ")
}

func defaults() map[string]string {
	return map[string]string{
		"bot.type":                         "balancer",
		"bot.run_options.interval_seconds": "120",
		"bot.run_options.min_profit":       "0",
		"network.chain_id":                 "100",
		"gas.priority_fee_wei":             "1",
		"gas.max_fee_multiplier":           "2",
		"gas.min_gas_price_bump_wei":       "1",
	}
}
