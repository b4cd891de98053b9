package formatter

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kohaku-io/agora/internal/discussion"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatStatuses(statuses []*discussion.Status) (string, error) {
	data, err := yaml.Marshal(statuses)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (f *YAMLFormatter) FormatStatus(st *discussion.Status) (string, error) {
	if st == nil {
		return "null", nil
	}
	data, err := yaml.Marshal(st)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
