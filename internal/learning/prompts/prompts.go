package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"text/template"
)

// Prompt is a rendered grading request, ready for openai.GenerateJSON or
// GenerateText.
type Prompt struct {
	Name       string
	Version    int
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

// Fingerprint identifies the rendered prompt; logged next to grader output.
func (p Prompt) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s\x00%s", p.Name, p.Version, p.System, p.User)
	return hex.EncodeToString(h.Sum(nil))
}

// Build renders prompt name for in. Every field the prompt requires must be
// non-blank.
func Build(name PromptName, in Input) (Prompt, error) {
	d, ok := definitions[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", name)
	}
	for _, f := range d.requires {
		if strings.TrimSpace(in.field(f)) == "" {
			return Prompt{}, fmt.Errorf("%s: %s required", name, f)
		}
	}
	system, err := render(d.system, in)
	if err != nil {
		return Prompt{}, fmt.Errorf("%s: %w", name, err)
	}
	user, err := render(d.user, in)
	if err != nil {
		return Prompt{}, fmt.Errorf("%s: %w", name, err)
	}
	return Prompt{
		Name:       string(name),
		Version:    d.version,
		System:     system,
		User:       user,
		SchemaName: d.schemaName,
		Schema:     d.schema(),
	}, nil
}

func render(t *template.Template, in Input) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, in); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(b.String()), nil
}
