package utils

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompt template keys used by the pipeline.
const (
	PromptAnalyze    = "analyze/chat"
	PromptEvents     = "analyze/events"
	PromptReflection = "reflection/header"
)

//go:embed prompts
var embeddedPrompts embed.FS

var templateSuffixes = []string{".txt", ".md", ""}

// FormatTemplate replaces {name} placeholders with params. "{{" and "}}"
// produce literal braces. A placeholder without a param is an error.
func FormatTemplate(tmpl string, params map[string]string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("unclosed placeholder at offset %d", i)
			}
			name := tmpl[i+1 : i+1+end]
			val, ok := params[name]
			if !ok {
				return "", fmt.Errorf("missing template parameter %q", name)
			}
			b.WriteString(val)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				i++
			}
			b.WriteByte('}')
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// DirTemplates reads templates from files under a directory, one file per
// key. "analyze/events" is looked up as analyze/events.txt, .md, then bare.
type DirTemplates struct {
	fsys fs.FS
}

func NewDirTemplates(dir string) *DirTemplates {
	return &DirTemplates{fsys: os.DirFS(dir)}
}

// EmbeddedTemplates returns the prompt templates built into the binary.
func EmbeddedTemplates() *DirTemplates {
	sub, err := fs.Sub(embeddedPrompts, "prompts")
	if err != nil {
		panic(err)
	}
	return &DirTemplates{fsys: sub}
}

func (d *DirTemplates) Template(key string) (string, error) {
	clean := path.Clean(filepath.ToSlash(key))
	if !fs.ValidPath(clean) {
		return "", fmt.Errorf("invalid prompt key %q", key)
	}
	for _, suffix := range templateSuffixes {
		data, err := fs.ReadFile(d.fsys, clean+suffix)
		if err == nil {
			return strings.TrimRight(string(data), "\n"), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read prompt %q: %w", key, err)
		}
	}
	return "", fmt.Errorf("prompt template %q not found", key)
}

// YAMLTemplates is a key to template map loaded from a YAML document.
type YAMLTemplates struct {
	templates map[string]string
}

func LoadYAMLTemplates(file string) (*YAMLTemplates, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	var templates map[string]string
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file '%s': %w", file, err)
	}
	return &YAMLTemplates{templates: templates}, nil
}

func (y *YAMLTemplates) Template(key string) (string, error) {
	t, ok := y.templates[key]
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", key)
	}
	return t, nil
}

// ChainTemplates asks each source in turn and returns the first hit.
type ChainTemplates []TemplateSource

func (c ChainTemplates) Template(key string) (string, error) {
	var errs []error
	for _, src := range c {
		t, err := src.Template(key)
		if err == nil {
			return t, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("prompt template %q not found", key)
	}
	return "", errors.Join(errs...)
}
