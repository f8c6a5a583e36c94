package visualize

import (
	"fmt"
	"os"

	"github.com/narrativeflow/storyflow/pkg/model"
)

// RenderFlow is a convenience function to render a flow in the
// specified format. Supported formats: "mermaid".
// If opts is nil, default options will be used.
func RenderFlow(flow *model.Flow, format string, opts *RenderOptions) (string, error) {
	if opts == nil {
		opts = DefaultRenderOptions()
	}

	var renderer Renderer
	switch format {
	case "mermaid":
		renderer = NewMermaidRenderer()
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: mermaid)", format)
	}

	return renderer.Render(flow, opts)
}

// PrintFlow prints a flow diagram to stdout in the specified format.
func PrintFlow(flow *model.Flow, format string, opts *RenderOptions) error {
	diagram, err := RenderFlow(flow, format, opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, diagram)
	return nil
}

// SaveFlowToFile saves a flow diagram to a file.
func SaveFlowToFile(flow *model.Flow, format string, filename string, opts *RenderOptions) error {
	diagram, err := RenderFlow(flow, format, opts)
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(diagram), 0644)
}
