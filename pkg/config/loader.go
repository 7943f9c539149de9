// Package config loads configuration structs from layered sources. Values
// are resolved in priority order, lowest first:
//
//	envDefault struct tags
//	YAML/JSON config file       (WithFile)
//	.env file                   (WithDotEnv)
//	process environment
//
// A .env file only supplies variables the process environment does not
// already define, matching how godotenv behaves in local development.
//
// # Struct Tags
//
//   - `env:"VAR_NAME"` maps the field to an environment variable
//   - `envDefault:"value"` sets a default when the field is zero-valued
//   - `required:"true"` fails validation if the field remains zero
//
// File-based loading uses the standard `yaml` and `json` tags.
//
// # Usage
//
//	cfg := config.MustLoad[cognito.Config](
//	    config.New().WithDotEnv(".env").WithFile("auth.yaml"),
//	)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// Loader resolves configuration from the layered sources described in the
// package documentation. It is not safe for concurrent use.
type Loader struct {
	envPrefix   string
	filePath    string
	dotEnvPaths []string
}

// New creates a Loader that reads only struct defaults and the process
// environment.
func New() *Loader {
	return &Loader{}
}

// WithEnvPrefix prepends prefix and an underscore to every env tag. The
// prefix is upper-cased; an empty prefix disables prefixing.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = strings.ToUpper(prefix)
	return l
}

// WithFile sets a YAML (.yaml, .yml) or JSON (.json) file to load. A
// missing file is not an error.
func (l *Loader) WithFile(path string) *Loader {
	l.filePath = path
	return l
}

// WithDotEnv adds .env files whose variables act as a fallback for the
// process environment. Missing files are skipped.
func (l *Loader) WithDotEnv(paths ...string) *Loader {
	l.dotEnvPaths = append(l.dotEnvPaths, paths...)
	return l
}

// Load populates cfg, which must be a non-nil pointer to a struct, and then
// validates it. Loading failures carry [sserr.CodeInternalConfiguration];
// validation failures carry [sserr.CodeValidationRequired] or
// [sserr.CodeValidation].
func (l *Loader) Load(cfg any) error {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return sserr.New(sserr.CodeInternalConfiguration,
			"config: Load requires a non-nil pointer to a struct")
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return sserr.New(sserr.CodeInternalConfiguration,
			"config: Load requires a pointer to a struct")
	}

	if err := applyDefaults(rv); err != nil {
		return err
	}

	if l.filePath != "" {
		if err := l.loadFile(cfg); err != nil {
			return err
		}
	}

	lookup, err := l.lookupFunc()
	if err != nil {
		return err
	}
	if err := applyEnv(rv, l.envPrefix, lookup); err != nil {
		return err
	}

	return validate(cfg, rv)
}

// MustLoad loads a T and panics on failure. Use it in func main where a
// broken configuration should stop the process.
func MustLoad[T any](loader *Loader) T {
	var cfg T
	if err := loader.Load(&cfg); err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

// lookupFunc returns an environment lookup that consults the process
// environment first and the configured .env files second.
func (l *Loader) lookupFunc() (func(string) (string, bool), error) {
	dotEnv := map[string]string{}
	for _, path := range l.dotEnvPaths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, sserr.Wrapf(err, sserr.CodeInternalConfiguration,
				"config: failed to parse .env file %q", path)
		}
		for k, v := range vars {
			// Earlier files win, like godotenv.Load.
			if _, seen := dotEnv[k]; !seen {
				dotEnv[k] = v
			}
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotEnv[key]
		return v, ok
	}, nil
}

func (l *Loader) loadFile(cfg any) error {
	if strings.Contains(l.filePath, "..") {
		return sserr.New(sserr.CodeInternalConfiguration,
			"config: file path must not contain directory traversal (..) sequences")
	}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return sserr.Wrapf(err, sserr.CodeInternalConfiguration,
			"config: failed to read file %q", l.filePath)
	}

	switch ext := strings.ToLower(filepath.Ext(l.filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return sserr.Wrapf(err, sserr.CodeInternalConfiguration,
				"config: failed to parse YAML file %q", l.filePath)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return sserr.Wrapf(err, sserr.CodeInternalConfiguration,
				"config: failed to parse JSON file %q", l.filePath)
		}
	default:
		return sserr.Newf(sserr.CodeInternalConfiguration,
			"config: unsupported file extension %q (use .yaml, .yml, or .json)", ext)
	}
	return nil
}
