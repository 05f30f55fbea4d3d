package backend

import (
	"errors"
	"strings"
)

// ErrInvalidToolID is returned for malformed tool IDs.
var ErrInvalidToolID = errors.New("invalid tool ID format")

const toolIDSeparator = "."

// FormatToolID builds a tool ID from backend and tool name.
func FormatToolID(backendID, tool string) string {
	if backendID == "" {
		return tool
	}
	return backendID + toolIDSeparator + tool
}

// ParseToolID splits a tool ID into backend and tool name. The split happens
// at the first separator; tool names may themselves contain dots.
func ParseToolID(id string) (backendID, tool string, err error) {
	backendID, tool, ok := strings.Cut(id, toolIDSeparator)
	if !ok || backendID == "" || tool == "" {
		return "", "", ErrInvalidToolID
	}
	return backendID, tool, nil
}
