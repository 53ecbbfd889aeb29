package templates

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/elec-mate/elecmate-engine/internal/forms"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

// ErrTemplateNotFound is returned when no template has the requested ID
var ErrTemplateNotFound = errors.New("template not found")

// Loader manages loading and caching of document templates
type Loader struct {
	mu        sync.RWMutex
	templates map[string]*models.DocumentTemplate
	order     []string
}

// NewLoader creates a new template loader
func NewLoader() *Loader {
	return &Loader{
		templates: make(map[string]*models.DocumentTemplate),
	}
}

// LoadFromDir loads every YAML template in dir and its category subdirectories
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading document templates", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*/*.yaml", "*/*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return fmt.Errorf("failed to scan templates dir: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load template", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("document templates loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single template from a YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if tf.ID == "" {
		base := filepath.Base(path)
		tf.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	tmpl, err := tf.build()
	if err != nil {
		return fmt.Errorf("template %s: %w", tf.ID, err)
	}

	l.Add(tmpl)
	slog.Debug("template loaded", "id", tmpl.ID, "category", tmpl.Category, "fields", len(tmpl.Fields))
	return nil
}

// Get retrieves a template by ID
func (l *Loader) Get(id string) (*models.DocumentTemplate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tmpl, ok := l.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return tmpl, nil
}

// List returns all loaded templates in load order
func (l *Loader) List() []*models.DocumentTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.DocumentTemplate, 0, len(l.order))
	for _, id := range l.order {
		result = append(result, l.templates[id])
	}
	return result
}

// Add programmatically adds or replaces a template
func (l *Loader) Add(tmpl *models.DocumentTemplate) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.templates[tmpl.ID]; !exists {
		l.order = append(l.order, tmpl.ID)
	}
	l.templates[tmpl.ID] = tmpl
}

// Len returns the number of loaded templates
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// --- YAML file structs ---

type templateFile struct {
	ID            string      `yaml:"id"`
	Name          string      `yaml:"name"`
	Description   string      `yaml:"description"`
	Category      string      `yaml:"category"`
	FileType      string      `yaml:"file_type"`
	Difficulty    string      `yaml:"difficulty"`
	UKSpecific    bool        `yaml:"uk_specific"`
	Regulations   []string    `yaml:"regulation_compliant"`
	EstimatedTime string      `yaml:"estimated_time"`
	LastUpdated   string      `yaml:"last_updated"`
	Fields        []fieldFile `yaml:"fields"`
}

type fieldFile struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Label       string   `yaml:"label"`
	Type        string   `yaml:"type"`
	Required    bool     `yaml:"required"`
	Placeholder string   `yaml:"placeholder"`
	HelpText    string   `yaml:"help_text"`
	Validation  string   `yaml:"validation"`
	Options     []string `yaml:"options"`
}

func (tf templateFile) build() (*models.DocumentTemplate, error) {
	if tf.Name == "" {
		return nil, fmt.Errorf("template name is required")
	}

	category := models.Category(tf.Category)
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", tf.Category)
	}

	difficulty := models.Difficulty(tf.Difficulty)
	if difficulty != "" && !difficulty.Valid() {
		return nil, fmt.Errorf("unknown difficulty %q", tf.Difficulty)
	}

	fileType := tf.FileType
	if fileType == "" {
		fileType = "pdf"
	}

	tmpl := &models.DocumentTemplate{
		ID:                  tf.ID,
		Name:                tf.Name,
		Description:         tf.Description,
		Category:            category,
		FileType:            fileType,
		Difficulty:          difficulty,
		UKSpecific:          tf.UKSpecific,
		RegulationCompliant: tf.Regulations,
		EstimatedTime:       tf.EstimatedTime,
		LastUpdated:         tf.LastUpdated,
		Fields:              make([]forms.Field, 0, len(tf.Fields)),
	}

	seen := make(map[string]bool, len(tf.Fields))
	for i, ff := range tf.Fields {
		if ff.Name == "" {
			return nil, fmt.Errorf("field %d: name is required", i)
		}
		if seen[ff.Name] {
			return nil, fmt.Errorf("duplicate field name %q", ff.Name)
		}
		seen[ff.Name] = true

		kind, err := forms.ParseKind(ff.Type, ff.Options)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", ff.Name, err)
		}
		if ff.Validation != "" {
			if _, err := regexp.Compile(ff.Validation); err != nil {
				return nil, fmt.Errorf("field %q: invalid validation pattern: %w", ff.Name, err)
			}
		}

		id := ff.ID
		if id == "" {
			id = ff.Name
		}
		label := ff.Label
		if label == "" {
			label = ff.Name
		}

		tmpl.Fields = append(tmpl.Fields, forms.Field{
			ID:          id,
			Name:        ff.Name,
			Label:       label,
			Kind:        kind,
			Required:    ff.Required,
			Placeholder: ff.Placeholder,
			HelpText:    ff.HelpText,
			Validation:  ff.Validation,
		})
	}

	return tmpl, nil
}
