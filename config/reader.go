package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/rrtstar/motionplan"
)

// Read reads a scenario from the given file. Environment variables written as ${VAR} are substituted before
// parsing.
func Read(filePath string) (*Scenario, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a scenario from the given reader and specifies
// where, if applicable, the file the reader originated from.
// Planner options missing from the input keep their basic values. Unknown fields are an error.
func FromReader(originalPath string, r io.Reader) (*Scenario, error) {
	scenario := &Scenario{Planner: motionplan.NewBasicPlannerOptions()}

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(scenario); err != nil {
		return nil, errors.Wrapf(err, "cannot parse scenario %q", originalPath)
	}
	if scenario.Name == "" && originalPath != "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(originalPath), filepath.Ext(originalPath))
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return scenario, nil
}
