package compat

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pcshop/configurator/pkg/catalog"
	"github.com/pcshop/configurator/pkg/rules"
)

// PowerBudgetConfig names the PSU slot and the power attributes. Names are
// resolved to ids every time an evaluator is loaded.
type PowerBudgetConfig struct {
	PSUTypeSlug    string `mapstructure:"psu_type" yaml:"psuType"`
	TDPAttribute   string `mapstructure:"tdp_attribute" yaml:"tdpAttribute"`
	PowerAttribute string `mapstructure:"power_attribute" yaml:"powerAttribute"`
}

// DefaultPowerBudgetConfig returns the conventional slug and attribute names.
func DefaultPowerBudgetConfig() PowerBudgetConfig {
	return PowerBudgetConfig{
		PSUTypeSlug:    "psu",
		TDPAttribute:   "tdp",
		PowerAttribute: "power",
	}
}

// PowerBudgetConfigFromEnv overrides the defaults with PCSHOP_POWER_* variables.
func PowerBudgetConfigFromEnv() PowerBudgetConfig {
	cfg := DefaultPowerBudgetConfig()
	if v := os.Getenv("PCSHOP_POWER_PSU_TYPE"); v != "" {
		cfg.PSUTypeSlug = v
	}
	if v := os.Getenv("PCSHOP_POWER_TDP_ATTRIBUTE"); v != "" {
		cfg.TDPAttribute = v
	}
	if v := os.Getenv("PCSHOP_POWER_POWER_ATTRIBUTE"); v != "" {
		cfg.PowerAttribute = v
	}
	return cfg
}

// Loader builds evaluators from the current catalog and rule tables.
type Loader struct {
	catalog *catalog.Store
	rules   *rules.Store
	power   PowerBudgetConfig
	logger  *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(cat *catalog.Store, rs *rules.Store, power PowerBudgetConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{catalog: cat, rules: rs, power: power, logger: logger}
}

// Load snapshots the registry, attributes and rules and returns an evaluator
// over them. The power budget is enabled only when the PSU slot and both
// attributes exist.
func (l *Loader) Load(ctx context.Context) (*Evaluator, error) {
	reg, err := l.catalog.Registry(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	attrs, err := l.catalog.AttributeIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("load attributes: %w", err)
	}
	ruleSet, err := l.rules.RuleSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	opts := []Option{WithLogger(l.logger)}
	if pb, ok := l.resolvePower(reg, attrs); ok {
		opts = append(opts, WithPowerBudget(pb))
	}
	return NewEvaluator(reg, attrs, ruleSet, opts...), nil
}

func (l *Loader) resolvePower(reg *catalog.Registry, attrs catalog.AttributeIndex) (PowerBudget, bool) {
	if l.power.PSUTypeSlug == "" {
		return PowerBudget{}, false
	}
	psu, ok := reg.BySlug(l.power.PSUTypeSlug)
	if !ok {
		l.logger.Warn("power budget disabled: PSU component type not found", "slug", l.power.PSUTypeSlug)
		return PowerBudget{}, false
	}
	tdp, ok := attrs.ByName(l.power.TDPAttribute)
	if !ok {
		l.logger.Warn("power budget disabled: TDP attribute not found", "attribute", l.power.TDPAttribute)
		return PowerBudget{}, false
	}
	power, ok := attrs.ByName(l.power.PowerAttribute)
	if !ok {
		l.logger.Warn("power budget disabled: power attribute not found", "attribute", l.power.PowerAttribute)
		return PowerBudget{}, false
	}
	return PowerBudget{PSUTypeID: psu.ID, TDPAttributeID: tdp.ID, PowerAttributeID: power.ID}, true
}
