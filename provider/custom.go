package provider

import (
	"fmt"
	"path/filepath"

	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/util"
	"github.com/reelscout/reelscout/where"
	"gopkg.in/yaml.v3"
)

// CatalogFile is the name of the downloaded catalog inside the sources directory.
const CatalogFile = "catalog.yaml"

type catalog struct {
	Profiles []*Profile `yaml:"profiles"`
}

// Decode parses either a catalog document with a top level profiles list or a single profile.
func Decode(data []byte) ([]*Profile, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if len(c.Profiles) > 0 {
		return c.Profiles, nil
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Name == "" && len(p.Domains) == 0 {
		return nil, nil
	}
	return []*Profile{&p}, nil
}

// Customs reads every YAML file from the sources directory.
func Customs() ([]*Profile, error) {
	dir := where.Sources()
	files, err := filesystem.API().ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var profiles []*Profile
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if ext := filepath.Ext(f.Name()); ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, f.Name())
		data, err := filesystem.API().ReadFile(path)
		if err != nil {
			return nil, err
		}

		decoded, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}
		// A lone profile without a name is named after its file.
		if len(decoded) == 1 && decoded[0].Name == "" {
			decoded[0].Name = util.FileStem(f.Name())
		}
		profiles = append(profiles, decoded...)
	}

	return profiles, nil
}

// Load builds the registry from the bundled profiles and the custom ones.
// A custom profile replaces the bundled profile of the same name.
func Load() (*Registry, error) {
	customs, err := Customs()
	if err != nil {
		return nil, err
	}

	overridden := make(map[string]bool, len(customs))
	for _, c := range customs {
		overridden[normalizeName(c.Name)] = true
	}

	var profiles []*Profile
	for _, b := range Builtins() {
		if !overridden[b.Name] {
			profiles = append(profiles, b)
		}
	}

	return NewRegistry(append(profiles, customs...)...)
}
