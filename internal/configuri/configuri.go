// Package configuri parses provider configuration URIs and maps their query parameters
// onto typed option structs.
//
// A configuration URI has the shape
//
//	scheme://[authority][/path]?option=value&option=value
//
// Option structs declare their parameter names with `uri` struct tags:
//
//	type awsOptions struct {
//	    Region  string   `uri:"region"`
//	    Secrets []string `uri:"secrets"`
//	    Strict  bool     `uri:"case-sensitive"`
//	}
//
// Values are converted with weak typing: "1"/"true" become booleans, comma separated
// strings become slices and Go duration strings become time.Duration.
package configuri

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/systmms/secretsrc/pkg/provider"
)

// URI is a parsed configuration URI.
type URI struct {
	Scheme    string
	Authority string
	Path      string
	Query     url.Values
}

// Parse parses raw into a URI. The scheme is lowercased.
func Parse(raw string) (URI, error) {
	if strings.TrimSpace(raw) == "" {
		return URI{}, fmt.Errorf("empty configuration URI")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return URI{}, fmt.Errorf("invalid configuration URI: %w", err)
	}
	if u.Scheme == "" {
		return URI{}, fmt.Errorf("configuration URI %q has no scheme", raw)
	}
	return URI{
		Scheme:    strings.ToLower(u.Scheme),
		Authority: u.Host,
		Path:      u.Path,
		Query:     u.Query(),
	}, nil
}

// Location joins authority and path. For "file-secret:///etc/app.json" it is
// "/etc/app.json", for "file-secret://conf/app.json" it is "conf/app.json".
func (u URI) Location() string {
	return u.Authority + u.Path
}

// Load parses raw, checks that its scheme selects providerKey and applies the query onto
// opts, a pointer to a struct with `uri` tags and preset defaults. Failures are returned
// as provider.ConfigurationError with CodeInvalidURI, CodeSchemeMismatch or
// CodeInvalidOption.
func Load(providerKey, raw string, opts interface{}, applyOpts ...ApplyOption) (URI, error) {
	u, err := Parse(raw)
	if err != nil {
		return URI{}, provider.ConfigurationError{
			Provider: providerKey,
			Code:     provider.CodeInvalidURI,
			Message:  "cannot parse configuration URI",
			Err:      err,
		}
	}
	if u.Scheme != providerKey {
		return URI{}, provider.ConfigurationError{
			Provider: providerKey,
			Code:     provider.CodeSchemeMismatch,
			Message:  fmt.Sprintf("URI scheme %q does not select this provider", u.Scheme),
		}
	}
	if err := Apply(opts, u.Query, applyOpts...); err != nil {
		return URI{}, provider.ConfigurationError{
			Provider: providerKey,
			Code:     provider.CodeInvalidOption,
			Message:  "cannot read options",
			Err:      err,
		}
	}
	return u, nil
}

// ApplyOption tunes Apply.
type ApplyOption func(*applyConfig)

type applyConfig struct {
	prefix          string
	exclude         map[string]struct{}
	excludeDefaults map[string]struct{}
}

// WithPrefix only maps parameters starting with prefix, with the prefix removed.
func WithPrefix(prefix string) ApplyOption {
	return func(c *applyConfig) {
		c.prefix = prefix
	}
}

// WithExclude never maps the named options, leaving the target's values untouched.
func WithExclude(names ...string) ApplyOption {
	return func(c *applyConfig) {
		for _, n := range names {
			c.exclude[n] = struct{}{}
		}
	}
}

// WithExcludeDefaults drops the target's preset value for the named options: when the
// query does not set them they end up as their zero value.
func WithExcludeDefaults(names ...string) ApplyOption {
	return func(c *applyConfig) {
		for _, n := range names {
			c.excludeDefaults[n] = struct{}{}
		}
	}
}

// Apply maps query onto target, which must be a pointer to a struct whose fields carry
// `uri` tags. Fields not mentioned in query keep their current value, so callers preset
// defaults on target before calling Apply. When a parameter repeats, the last value wins.
func Apply(target interface{}, query url.Values, opts ...ApplyOption) error {
	cfg := applyConfig{
		exclude:         make(map[string]struct{}),
		excludeDefaults: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	input := make(map[string]interface{}, len(query))
	for name := range cfg.excludeDefaults {
		if _, skip := cfg.exclude[name]; !skip {
			input[name] = ""
		}
	}
	for key, values := range query {
		if len(values) == 0 {
			continue
		}
		name := key
		if cfg.prefix != "" {
			if !strings.HasPrefix(key, cfg.prefix) {
				continue
			}
			name = strings.TrimPrefix(key, cfg.prefix)
		}
		if _, skip := cfg.exclude[name]; skip {
			continue
		}
		input[name] = values[len(values)-1]
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "uri",
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			splitListHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("building option decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// SplitList splits a comma separated list, trimming blanks and dropping empty entries.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitListHook(from reflect.Kind, to reflect.Kind, data interface{}) (interface{}, error) {
	if from != reflect.String || to != reflect.Slice {
		return data, nil
	}
	return SplitList(data.(string)), nil
}
