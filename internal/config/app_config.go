package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/flakemap/internal/types"
	"github.com/temirov/flakemap/internal/utils"
)

const (
	invalidViewMessageFormat = "%w %q: expected %s or %s"
	workingDirectoryFailure  = "determine working directory: %w"
)

// ErrInvalidView is returned by Validate for an unknown view name.
var ErrInvalidView = errors.New("invalid view")

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds the defaults that command-line flags override.
type ApplicationConfiguration struct {
	View         string `mapstructure:"view"`
	Watch        *bool  `mapstructure:"watch"`
	UseGitignore *bool  `mapstructure:"use_gitignore"`
	Clipboard    *bool  `mapstructure:"clipboard"`
	LogFile      string `mapstructure:"log_file"`
}

// LoadApplicationConfiguration loads configuration from the global file and
// then from the local or explicit file, later sources winning.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf(workingDirectoryFailure, err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	if validationErr := merged.Validate(); validationErr != nil {
		return ApplicationConfiguration{}, validationErr
	}
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath
		}
		return filepath.Join(workingDirectory, explicitPath)
	}
	return filepath.Join(workingDirectory, utils.LocalConfigFileName)
}

// loadConfigurationFromPath reads one YAML file. A missing file is an empty
// configuration unless required is set.
func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.View != "" {
		result.View = override.View
	}
	if override.Watch != nil {
		result.Watch = cloneBool(override.Watch)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	if override.LogFile != "" {
		result.LogFile = override.LogFile
	}
	return result
}

// Validate reports values no command could act on.
func (config ApplicationConfiguration) Validate() error {
	switch config.View {
	case "", types.ViewTree, types.ViewList:
		return nil
	default:
		return fmt.Errorf(invalidViewMessageFormat, ErrInvalidView, config.View, types.ViewTree, types.ViewList)
	}
}

// ViewOrDefault returns the configured view, tree when unset.
func (config ApplicationConfiguration) ViewOrDefault() string {
	if config.View == "" {
		return types.ViewTree
	}
	return config.View
}

// WatchEnabled reports whether file watching is on; off by default.
func (config ApplicationConfiguration) WatchEnabled() bool {
	return boolOrDefault(config.Watch, false)
}

// GitignoreEnabled reports whether .gitignore filtering is on; off by default.
func (config ApplicationConfiguration) GitignoreEnabled() bool {
	return boolOrDefault(config.UseGitignore, false)
}

// ClipboardEnabled reports whether the copy key may use the system clipboard; on by default.
func (config ApplicationConfiguration) ClipboardEnabled() bool {
	return boolOrDefault(config.Clipboard, true)
}

func boolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
