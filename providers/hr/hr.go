// Package hr provides a demo HR backend with a stubbed vacation policy tool.
//
// Importing the package registers its factory under Key.
package hr

import (
	"context"
	"fmt"

	"github.com/jonwraymond/toolgate/backend"
	"github.com/jonwraymond/toolgate/backend/local"
)

// Key is the factory key descriptors use to select this backend.
const Key = "hr"

func init() {
	backend.RegisterFactory(Key, New)
}

// New builds the HR backend with its tools namespaced under name.
func New(name string) (backend.Provider, error) {
	b := local.New(name)
	err := b.AddOperation(local.ToolDef{
		Name:  "get_policy",
		Title: "HR vacation policy",
		Description: "Get HR vacation policy for a country code. " +
			"Use this tool whenever the user asks about HR vacation policy for any country. Do NOT guess.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"country": map[string]any{
					"type":        "string",
					"description": "ISO country code, e.g. 'DE'.",
				},
			},
			"required": []any{"country"},
		},
		Tags:    []string{"hr", "policy", "vacation"},
		Handler: getPolicy,
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func getPolicy(_ context.Context, args map[string]any) (any, error) {
	country, _ := args["country"].(string)
	return map[string]any{
		"country": country,
		"policy":  fmt.Sprintf("Stubbed vacation policy for %s.", country),
	}, nil
}
