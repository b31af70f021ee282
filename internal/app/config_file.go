package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Input     string   `yaml:"input" json:"input"`
	Templates string   `yaml:"templates" json:"templates"`
	Modules   []string `yaml:"modules" json:"modules"`

	Output struct {
		Dir     string `yaml:"dir" json:"dir"`
		Report  string `yaml:"report" json:"report"`
		HTML    string `yaml:"html" json:"html"`
		PDF     string `yaml:"pdf" json:"pdf"`
		PDFFont string `yaml:"pdfFont" json:"pdfFont"`
		JSON    string `yaml:"json" json:"json"`
	} `yaml:"output" json:"output"`

	// Pointers tell "false" apart from "not set".
	Parallel   *bool `yaml:"parallel" json:"parallel"`
	NoAnnotate *bool `yaml:"noAnnotate" json:"noAnnotate"`
	Verbose    *bool `yaml:"verbose" json:"verbose"`

	Figure struct {
		Content *bool `yaml:"content" json:"content"`
	} `yaml:"figure" json:"figure"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		MaxEntries  int           `yaml:"maxEntries" json:"maxEntries"`
		Clear       *bool         `yaml:"clear" json:"clear"`
		StrictPerms *bool         `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Metrics struct {
		Out string `yaml:"out" json:"out"`
	} `yaml:"metrics" json:"metrics"`

	Comment struct {
		Author   string `yaml:"author" json:"author"`
		Initials string `yaml:"initials" json:"initials"`
	} `yaml:"comment" json:"comment"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value fc sets onto cfg.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}

	setString(&cfg.InputPath, fc.Input)
	setString(&cfg.TemplatesDir, fc.Templates)
	if len(fc.Modules) > 0 {
		cfg.Modules = append([]string{}, fc.Modules...)
	}

	setString(&cfg.OutputDir, fc.Output.Dir)
	setString(&cfg.ReportPath, fc.Output.Report)
	setString(&cfg.HTMLPath, fc.Output.HTML)
	setString(&cfg.PDFPath, fc.Output.PDF)
	setString(&cfg.PDFFont, fc.Output.PDFFont)
	setString(&cfg.JSONPath, fc.Output.JSON)

	setBool(&cfg.Parallel, fc.Parallel)
	setBool(&cfg.NoAnnotate, fc.NoAnnotate)
	setBool(&cfg.Verbose, fc.Verbose)
	setBool(&cfg.FigureContent, fc.Figure.Content)

	setString(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setString(&cfg.LLMModel, fc.LLM.Model)
	setString(&cfg.LLMAPIKey, fc.LLM.APIKey)
	setString(&cfg.CacheDir, fc.Cache.Dir)
	if fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if fc.Cache.MaxEntries > 0 {
		cfg.CacheMaxEntries = fc.Cache.MaxEntries
	}
	setBool(&cfg.CacheClear, fc.Cache.Clear)
	setBool(&cfg.CacheStrictPerms, fc.Cache.StrictPerms)
	setString(&cfg.MetricsOut, fc.Metrics.Out)
	setString(&cfg.CommentAuthor, fc.Comment.Author)
	setString(&cfg.CommentInitials, fc.Comment.Initials)
}
