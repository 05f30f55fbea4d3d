// Package jira provides a demo issue tracker backend with stubbed search
// results.
//
// Importing the package registers its factory under Key.
package jira

import (
	"github.com/jonwraymond/toolgate/backend"
	"github.com/jonwraymond/toolgate/backend/local"
)

// Key is the factory key descriptors use to select this backend.
const Key = "jira"

func init() {
	backend.RegisterFactory(Key, New)
}

var searchSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "Search query string.",
		},
	},
	"required": []any{"query"},
}

// New builds the Jira backend with its tools namespaced under name.
func New(name string) (backend.Provider, error) {
	b := local.New(name)
	if err := b.AddFunc("search_issues", "Search Jira issues by text query (stubbed).", searchSchema, searchIssues); err != nil {
		return nil, err
	}
	return b, nil
}

func searchIssues(args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	return map[string]any{
		"query": query,
		"issues": []any{
			map[string]any{"key": "PROJ-1", "summary": "Stubbed issue 1"},
			map[string]any{"key": "PROJ-2", "summary": "Stubbed issue 2"},
		},
	}, nil
}
