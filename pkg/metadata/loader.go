package metadata

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/ingestor/pkg/config"
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/json"
	"gopkg.in/yaml.v3"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Load reads {dir}/{group}.json, .yaml or .yml, in that order of preference.
// ${VAR} references are replaced from the environment before parsing.
func Load(dir, group string) (*Group, error) {
	if group == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "group name is required")
	}

	for _, ext := range extensions {
		path := filepath.Join(dir, group+ext)
		data, err := os.ReadFile(path) //nolint:gosec // G304: metadata dir is operator controlled
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read metadata").
				WithDetail("path", path)
		}
		g, err := Parse(data, ext, group)
		if err != nil {
			return nil, errors.Annotate(err, path)
		}
		return g, nil
	}

	return nil, errors.Newf(errors.ErrorTypeConfig, "metadata config not found: %s",
		filepath.Join(dir, group+".json")).WithDetail("group", group)
}

// Parse decodes one metadata document. ext selects the codec (".json",
// ".yaml" or ".yml").
func Parse(data []byte, ext, group string) (*Group, error) {
	content := []byte(config.ExpandEnv(string(data)))

	g := &Group{ID: group}
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, g)
	default:
		err = json.Unmarshal(content, g)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse metadata document")
	}
	return g, nil
}
