package issues

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"issuetracker/internal/errs"
)

type seedFile struct {
	Issues []seedEntry `yaml:"issues" toml:"issues"`
}

type seedEntry struct {
	Title       string `yaml:"title" toml:"title"`
	Description string `yaml:"description" toml:"description"`
	Status      string `yaml:"status" toml:"status"`
}

// LoadSeedFile reads seed issues from a .yaml/.yml or .toml file:
//
//	issues:
//	  - title: Fix login bug
//	    description: Users are unable to log in
//	    status: OPEN
func LoadSeedFile(path string) ([]CreateIssueInput, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("seed file is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "read seed file")
	}

	var file seedFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, errs.Wrapf(err, "decode yaml seed file %q", path)
		}
	case ".toml":
		if err := toml.Unmarshal(raw, &file); err != nil {
			return nil, errs.Wrapf(err, "decode toml seed file %q", path)
		}
	default:
		return nil, fmt.Errorf("unsupported seed file extension %q", ext)
	}

	out := make([]CreateIssueInput, 0, len(file.Issues))
	for _, entry := range file.Issues {
		out = append(out, CreateIssueInput{
			Title:       entry.Title,
			Description: entry.Description,
			Status:      entry.Status,
		})
	}
	return out, nil
}
