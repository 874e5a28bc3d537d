package spec

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseFile loads a spec document from disk, validates it, and returns the
// resulting model.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, semerrors.NewSpecFieldError(path, "cannot read spec file", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Parse decodes and validates a spec document from raw YAML bytes.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, semerrors.NewSpecFieldError(yamlLocation(err), "invalid yaml", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func yamlLocation(err error) string {
	if err == nil {
		return ""
	}
	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return ""
	}
	return fmt.Sprintf("line %s", matches[1])
}
