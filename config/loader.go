package config

import (
	_ "embed"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/adrg/xdg"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
)

//go:embed schema.cue
var schemaSource []byte

// Load reads and validates the configuration file at path.
//
// The process:
//  1. Read the file
//  2. Compile it as CUE and unify it with the embedded #Config schema
//  3. Require every field to be concrete (defaults fill omitted fields)
//  4. Decode into File
//  5. Resolve repository paths and validate the result
//
// All failures are returned as errors.Error with CodeInvalidConfig.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig,
			"failed to read configuration", map[string]interface{}{"path": path})
	}

	file, err := decode(data, path)
	if err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig,
			"failed to resolve configuration directory", map[string]interface{}{"path": path})
	}

	file.Path = path
	if err := validate(file, dir); err != nil {
		return nil, err
	}
	return file, nil
}

// LoadDefault loads the configuration from the XDG config directories.
// It returns Defaults when no configuration file exists.
func LoadDefault() (*File, error) {
	path, err := xdg.SearchConfigFile(filepath.Join(appDir, fileName))
	if err != nil {
		return Defaults(), nil
	}
	return Load(path)
}

// LoadOrDefault loads path when it is set and falls back to LoadDefault.
func LoadOrDefault(path string) (*File, error) {
	if path == "" {
		return LoadDefault()
	}
	return Load(path)
}

func decode(data []byte, path string) (*File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to compile configuration schema")
	}

	user := ctx.CompileBytes(data, cue.Filename(path))
	if err := user.Err(); err != nil {
		return nil, cueError(err, path, "failed to parse configuration")
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err, path, "configuration does not match schema")
	}

	var file File
	if err := v.Decode(&file); err != nil {
		return nil, cueError(err, path, "failed to decode configuration")
	}
	if file.Repositories == nil {
		file.Repositories = []Repository{}
	}
	return &file, nil
}

// cueError flattens every CUE error position into a single cause.
func cueError(err error, path, message string) error {
	details := strings.TrimSpace(cueerrors.Details(err, nil))
	return errors.WrapWithContext(stderrors.New(details), errors.CodeInvalidConfig, message,
		map[string]interface{}{"path": path})
}
