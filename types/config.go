package types

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
	"plaid.dev/conllu/logger"
	"plaid.dev/conllu/utils"
)

const (
	DefaultProfile           = "default"
	DefaultSentenceSeparator = "\n"
	DefaultPlaceholder       = "# No tokenized content available"
)

// Configuration is one conversion profile read from a YAML file.
type Configuration struct {
	Name              string     `yaml:"-" json:"name"`
	FilePath          string     `yaml:"-" json:"file_path"`
	Layers            LayerNames `yaml:"layers" json:"layers"`
	SentenceSeparator string     `yaml:"sentence_separator" json:"sentence_separator"`
	Placeholder       string     `yaml:"placeholder" json:"placeholder"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Name:              DefaultProfile,
		Layers:            DefaultLayerNames(),
		SentenceSeparator: DefaultSentenceSeparator,
		Placeholder:       DefaultPlaceholder,
	}
}

func (cfg Configuration) GetHashCode() uint64 {
	return ProfileHash(cfg.Name)
}

func ProfileHash(name string) uint64 {
	if name == "" {
		name = DefaultProfile
	}
	return utils.HashString(strings.ToLower(name))
}

func (cfg Configuration) WithDefaults() Configuration {
	cfg.Layers = cfg.Layers.WithDefaults()
	if cfg.SentenceSeparator == "" {
		cfg.SentenceSeparator = DefaultSentenceSeparator
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = DefaultPlaceholder
	}
	return cfg
}

func (cfg Configuration) Validate() error {
	if !cfg.Layers.Distinct() {
		return errors.New("layer names must be distinct")
	}
	if strings.TrimSpace(cfg.SentenceSeparator) != "" {
		return fmt.Errorf("sentence separator %q must be whitespace", cfg.SentenceSeparator)
	}
	if !strings.HasPrefix(cfg.Placeholder, "#") {
		return fmt.Errorf("placeholder %q must be a comment line", cfg.Placeholder)
	}
	return nil
}

// LoadConfigurations reads every *.yaml file of dirPath. Files that cannot be
// read or do not validate are logged and skipped.
func LoadConfigurations(dirPath string) ([]Configuration, error) {
	cfgLogger := logger.NewLogger("LoadConfigurations")

	files, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	configChan := make(chan Configuration, len(files))
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
			continue
		}

		wg.Add(1)
		go func(file os.DirEntry) {
			defer wg.Done()
			cfg, err := loadConfiguration(dirPath, file.Name())
			if err != nil {
				cfgLogger.Err(err).Str("file", file.Name()).Msg("Skipping configuration")
				return
			}
			configChan <- cfg
		}(f)
	}

	go func() {
		wg.Wait()
		close(configChan)
	}()

	configs := make([]Configuration, 0, len(files))
	for cfg := range configChan {
		configs = append(configs, cfg)
	}
	return configs, nil
}

func loadConfiguration(dirPath string, fileName string) (Configuration, error) {
	cfg := Configuration{
		Name:     strings.TrimSuffix(fileName, ".yaml"),
		FilePath: path.Join(dirPath, fileName),
	}
	buf, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode %s: %w", cfg.FilePath, err)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration %s: %w", cfg.Name, err)
	}
	return cfg, nil
}
