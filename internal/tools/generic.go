package tools

import "context"

// The generic agent carries one placeholder tool so its remote definition
// is shaped like every other agent's.
func genericCatalog() []Tool {
	return []Tool{
		{
			Name:        "dummy_function",
			Description: "A placeholder function for requests no specialist covers.",
			Run: func(ctx context.Context, args Args) (string, error) {
				return "This is a placeholder function.", nil
			},
		},
	}
}
