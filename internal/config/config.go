// Package config loads secretsrc.yaml, the file of named secret sources.
//
//	version: 1
//	sources:
//	  prod:
//	    uri: "awssm://?secrets=prod/app,prod/shared&region=eu-west-1"
//	    keys: [DB_USER, DB_PASSWORD]
//
// A source only holds a configuration URI and the keys resolved by default. The file is
// checked against an embedded JSON schema before it is decoded.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hengadev/errsx"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/systmms/secretsrc/internal/configuri"
	serrors "github.com/systmms/secretsrc/internal/errors"
	"github.com/systmms/secretsrc/internal/logging"
)

// CurrentVersion is the only file version understood.
const CurrentVersion = 1

// DefaultPath is used when no --config flag is given.
const DefaultPath = "secretsrc.yaml"

const defaultTimeout = 30 * time.Second

//go:embed schema.json
var schemaJSON string

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the secretsrc.yaml structure
type Definition struct {
	Version int               `yaml:"version"`
	Sources map[string]Source `yaml:"sources"`
}

// Source is one named secret source.
type Source struct {
	URI       string   `yaml:"uri"`
	Keys      []string `yaml:"keys,omitempty"`
	TimeoutMs int      `yaml:"timeout_ms,omitempty"`
}

// Timeout returns the timeout for calls against the source, 30 seconds unless set.
func (s Source) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return defaultTimeout
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// Scheme returns the provider key selected by the source URI, or "" if it does not parse.
func (s Source) Scheme() string {
	u, err := configuri.Parse(s.URI)
	if err != nil {
		return ""
	}
	return u.Scheme
}

// Load reads, validates and parses the file at c.Path.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return serrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create secretsrc.yaml or pass --uri to use a provider directly",
			}
		}
		return serrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}
	if c.Logger != nil {
		c.Logger.Debug("Loaded %d sources from %s", len(def.Sources), c.Path)
	}
	c.Definition = def
	return nil
}

// Parse validates data against the file schema and decodes it. Every problem found is
// reported, not just the first.
func Parse(data []byte) (*Definition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, serrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if raw == nil {
		return nil, serrors.ConfigError{
			Field:      "version",
			Message:    "configuration file is empty",
			Suggestion: fmt.Sprintf("Set 'version: %d' at the top of secretsrc.yaml", CurrentVersion),
		}
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, serrors.UserError{
			Message: "Failed to decode configuration file",
			Err:     err,
		}
	}

	var errs errsx.Map
	for _, name := range def.SourceNames() {
		if _, err := configuri.Parse(def.Sources[name].URI); err != nil {
			errs.Set("sources."+name+".uri", serrors.ConfigError{
				Field:      "sources." + name + ".uri",
				Value:      def.Sources[name].URI,
				Message:    err.Error(),
				Suggestion: "Use the form scheme://[location]?option=value",
			})
		}
	}
	if !errs.IsEmpty() {
		return nil, invalidFile(errs.AsError())
	}
	return &def, nil
}

func validateSchema(raw interface{}) error {
	doc, err := json.Marshal(raw)
	if err != nil {
		return serrors.UserError{
			Message: "Failed to check configuration file",
			Err:     err,
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var errs errsx.Map
	for _, re := range result.Errors() {
		field := re.Field()
		errs.Set(field+": "+re.Type(), serrors.ConfigError{
			Field:   field,
			Message: re.Description(),
		})
	}
	return invalidFile(errs.AsError())
}

func invalidFile(err error) error {
	return serrors.UserError{
		Message:    "Invalid configuration file",
		Details:    err.Error(),
		Suggestion: fmt.Sprintf("Expected 'version: %d' and a 'sources' map of name -> {uri, keys}", CurrentVersion),
		Err:        err,
	}
}

// SourceNames returns the configured source names, sorted.
func (d *Definition) SourceNames() []string {
	names := make([]string, 0, len(d.Sources))
	for name := range d.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetSource returns the named source.
func (c *Config) GetSource(name string) (Source, error) {
	if c.Definition == nil {
		return Source{}, serrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	source, ok := c.Definition.Sources[name]
	if !ok {
		suggestion := "Add the source to the 'sources:' section of secretsrc.yaml"
		if available := c.Definition.SourceNames(); len(available) > 0 {
			suggestion = fmt.Sprintf("Available sources: %s", strings.Join(available, ", "))
		}
		return Source{}, serrors.ConfigError{
			Field:      "source",
			Value:      name,
			Message:    "source not found",
			Suggestion: suggestion,
		}
	}
	return source, nil
}
