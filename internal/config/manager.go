package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ocrforge/pdfsandwich/internal/userconfig"
)

// Manager loads job defaults from an optional YAML file plus environment
// variables, the way internal/config.Manager in the teacher merged
// provider settings via viper. Unlike the teacher, a Manager here only
// ever feeds the *defaults* a Job starts from: once a Job is constructed
// its Options are frozen (§3 invariant), so WatchConfig is opt-in and
// never touches an in-flight Job.
type Manager struct {
	mu        sync.RWMutex
	defaults  *Options
	callbacks []func(*Options)
}

// NewManager builds a Manager, optionally reading cfgFile (a YAML file of
// default option values) and SANDWICH_-prefixed environment variables.
func NewManager(cfgFile string) (*Manager, error) {
	m := &Manager{defaults: Default()}
	if err := m.initViper(cfgFile); err != nil {
		return nil, err
	}
	opts, err := m.load()
	if err != nil {
		return nil, err
	}
	m.defaults = opts
	return m, nil
}

func (m *Manager) initViper(cfgFile string) error {
	d := Default()
	viper.SetDefault("languages", d.Languages)
	viper.SetDefault("output_type", string(d.OutputType))
	viper.SetDefault("pdf_renderer", string(d.PDFRenderer))
	viper.SetDefault("jobs", d.Jobs)
	viper.SetDefault("verbosity", d.Verbosity)

	viper.SetEnvPrefix("SANDWICH")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		userDir, err := userconfig.New("")
		if err != nil {
			return fmt.Errorf("resolve user config directory: %w", err)
		}
		viper.SetConfigName("pdfsandwich")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(userDir.Path())
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (m *Manager) load() (*Options, error) {
	opts := Default()
	opts.Languages = viper.GetStringSlice("languages")
	opts.OutputType = OutputType(viper.GetString("output_type"))
	opts.PDFRenderer = Renderer(viper.GetString("pdf_renderer"))
	if j := viper.GetInt("jobs"); j > 0 {
		opts.Jobs = j
	}
	if v := viper.GetString("verbosity"); v != "" {
		opts.Verbosity = v
	}
	return opts, nil
}

// defaultsFile mirrors the viper keys initViper reads back, so a file
// WriteDefault produces round-trips through load() unchanged.
type defaultsFile struct {
	Languages   []string `yaml:"languages"`
	OutputType  string   `yaml:"output_type"`
	PDFRenderer string   `yaml:"pdf_renderer"`
	Jobs        int      `yaml:"jobs"`
	Verbosity   string   `yaml:"verbosity"`
}

// WriteDefault writes a starter config file at path, the same "generate
// something the user can edit" affordance the teacher's config package
// offers for its own YAML file.
func WriteDefault(path string) error {
	d := Default()
	data, err := yaml.Marshal(defaultsFile{
		Languages:   d.Languages,
		OutputType:  string(d.OutputType),
		PDFRenderer: string(d.PDFRenderer),
		Jobs:        d.Jobs,
		Verbosity:   d.Verbosity,
	})
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	header := []byte("# pdfsandwich configuration\n# generated defaults, edit freely\n\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// Defaults returns the merged default Options (thread-safe).
func (m *Manager) Defaults() *Options {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := *m.defaults
	return &cp
}

// OnChange registers a callback invoked whenever WatchConfig observes a
// changed config file. Never called for a Job already in flight.
func (m *Manager) OnChange(fn func(*Options)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// WatchConfig enables hot-reload of the defaults file. Optional: a single
// `run` invocation has no use for it since its Options are already frozen.
func (m *Manager) WatchConfig() {
	viper.OnConfigChange(func(fsnotify.Event) {
		opts, err := m.load()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.defaults = opts
		callbacks := make([]func(*Options), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		for _, fn := range callbacks {
			fn(opts)
		}
	})
	viper.WatchConfig()
}
