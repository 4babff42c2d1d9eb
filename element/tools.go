package element

// ToolConfig is the static metadata of an element type.
type ToolConfig struct {
	Type   Type
	Label  string
	Width  float64 // default display width
	Height float64 // default display height

	// Stamp tools stay active after a placement so several copies can be
	// placed; they need an asset (bitmap) before the first placement.
	Stamp bool
}

var tools = map[Type]ToolConfig{
	Signature: {Type: Signature, Label: "Signature", Width: 200, Height: 80, Stamp: true},
	Initials:  {Type: Initials, Label: "Initials", Width: 100, Height: 50, Stamp: true},
	Text:      {Type: Text, Label: "Text", Width: 200, Height: 30},
	Date:      {Type: Date, Label: "Date", Width: 150, Height: 30},
	Checkbox:  {Type: Checkbox, Label: "Checkbox", Width: 24, Height: 24},
	Image:     {Type: Image, Label: "Image", Width: 150, Height: 150, Stamp: true},
}

// Config returns the tool configuration of t. Unknown types get a square
// MinSize default.
func Config(t Type) ToolConfig {
	if c, ok := tools[t]; ok {
		return c
	}
	return ToolConfig{Type: t, Label: string(t), Width: MinSize, Height: MinSize}
}

// Tools returns all tool configurations in tool-bar order.
func Tools() []ToolConfig {
	out := make([]ToolConfig, 0, len(Types))
	for _, t := range Types {
		out = append(out, tools[t])
	}
	return out
}
