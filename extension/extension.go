// Package extension provides the Forge extension adapter for the plan ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// contract into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.planledger" or
// "planledger" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	planledger "github.com/gymplannet/planledger"
	"github.com/gymplannet/planledger/store"
	"github.com/gymplannet/planledger/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "planledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Gym plan asset ledger with versioned state and per-key history"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the plan ledger contract as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config       Config
	contract     *planledger.Contract
	store        store.Store
	contractOpts []planledger.Option
}

// New creates a new plan ledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Contract returns the underlying ledger contract.
// This is nil until Register is called.
func (e *Extension) Contract() *planledger.Contract { return e.contract }

// Register implements [forge.Extension]. It loads configuration,
// initializes the contract, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.contract = planledger.New(e.store, e.contractOpts...)

	return vessel.Provide(fapp.Container(), func() (*planledger.Contract, error) {
		return e.contract, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.contract == nil {
		return errors.New("planledger: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.contract.Instantiate(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.contract != nil {
		if err := e.contract.Close(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("planledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("planledger: configuration is required but not found in config files; " +
				"ensure 'extensions.planledger' or 'planledger' key exists in your config")
		}

		e.config = programmaticConfig
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("planledger: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.planledger" first (namespaced pattern).
	if cm.IsSet("extensions.planledger") {
		if err := cm.Bind("extensions.planledger", &cfg); err == nil {
			e.Logger().Debug("planledger: loaded config from file",
				forge.F("key", "extensions.planledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("planledger: failed to bind extensions.planledger config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "planledger" key.
	if cm.IsSet("planledger") {
		if err := cm.Bind("planledger", &cfg); err == nil {
			e.Logger().Debug("planledger: loaded config from file",
				forge.F("key", "planledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("planledger: failed to bind planledger config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	return yamlConfig
}
