package extension

import (
	planledger "github.com/gymplannet/planledger"
	"github.com/gymplannet/planledger/plugin"
	"github.com/gymplannet/planledger/store"
)

// Option configures the plan ledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger contract.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithContractOption passes a planledger.Option through to the underlying contract.
func WithContractOption(opt planledger.Option) Option {
	return func(e *Extension) {
		e.contractOpts = append(e.contractOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.contractOpts = append(e.contractOpts, planledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
