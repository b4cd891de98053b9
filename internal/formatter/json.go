package formatter

import (
	"encoding/json"

	"github.com/kohaku-io/agora/internal/discussion"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatStatuses(statuses []*discussion.Status) (string, error) {
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *JSONFormatter) FormatStatus(st *discussion.Status) (string, error) {
	if st == nil {
		return "null", nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
