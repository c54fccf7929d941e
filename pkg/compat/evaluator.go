// Package compat decides whether the products selected for a build can
// work together. It checks slot completeness, the data-driven pairwise
// rules and the built-in power budget.
package compat

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pcshop/configurator/pkg/catalog"
	"github.com/pcshop/configurator/pkg/rules"
)

// Slots maps a component type id to the product filling that slot.
type Slots map[uint]*catalog.Product

// Report is the outcome of a compatibility check. Errors is never nil so it
// serializes as an empty list.
type Report struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// PowerBudget identifies the PSU slot and the attributes that carry the
// per-component draw and the PSU capacity. A zero PSUTypeID disables the check.
type PowerBudget struct {
	PSUTypeID        uint
	TDPAttributeID   uint
	PowerAttributeID uint
}

func (p PowerBudget) enabled() bool {
	return p.PSUTypeID != 0 && p.TDPAttributeID != 0 && p.PowerAttributeID != 0
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithPowerBudget enables the power budget check.
func WithPowerBudget(pb PowerBudget) Option {
	return func(e *Evaluator) { e.power = pb }
}

// WithLogger sets the logger used for skipped rules.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// Evaluator checks slots against a registry and rule set snapshot. It holds
// no mutable state and is safe for concurrent use.
type Evaluator struct {
	registry *catalog.Registry
	attrs    catalog.AttributeIndex
	rules    *rules.RuleSet
	power    PowerBudget
	logger   *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(registry *catalog.Registry, attrs catalog.AttributeIndex, ruleSet *rules.RuleSet, opts ...Option) *Evaluator {
	if registry == nil {
		registry = catalog.NewRegistry(nil)
	}
	if ruleSet == nil {
		ruleSet = rules.NewRuleSet(nil)
	}
	if attrs == nil {
		attrs = catalog.AttributeIndex{}
	}
	e := &Evaluator{
		registry: registry,
		attrs:    attrs,
		rules:    ruleSet,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry snapshot the evaluator was built with.
func (e *Evaluator) Registry() *catalog.Registry { return e.registry }

// Evaluate checks completeness, then every rule, then the power budget, and
// returns all violations in that order. Evaluate is deterministic and has
// no side effects. It only returns an error when slots or rules reference a
// component type missing from the registry.
func (e *Evaluator) Evaluate(slots Slots) (Report, error) {
	for typeID := range slots {
		if _, ok := e.registry.Type(typeID); !ok {
			return Report{}, &catalog.IntegrityError{
				Entity:  "component type",
				ID:      typeID,
				Message: "slot references a component type missing from the registry",
			}
		}
	}

	if err := e.checkRuleReferences(); err != nil {
		return Report{}, err
	}

	errs := []string{}
	if msg := e.checkCompleteness(slots); msg != "" {
		errs = append(errs, msg)
	}

	ruleErrs, err := e.checkRules(slots)
	if err != nil {
		return Report{}, err
	}
	errs = append(errs, ruleErrs...)

	if msg := e.checkPower(slots); msg != "" {
		errs = append(errs, msg)
	}

	return Report{IsValid: len(errs) == 0, Errors: errs}, nil
}

// checkRuleReferences fails when any rule names a source or target type the
// registry does not have.
func (e *Evaluator) checkRuleReferences() error {
	for _, rule := range e.rules.All() {
		for _, ref := range []struct {
			side   string
			typeID uint
		}{{"source", rule.SourceTypeID}, {"target", rule.TargetTypeID}} {
			if _, ok := e.registry.Type(ref.typeID); !ok {
				return &catalog.IntegrityError{
					Entity:  "compatibility rule",
					ID:      rule.ID,
					Message: fmt.Sprintf("%s component type %d is missing from the registry", ref.side, ref.typeID),
				}
			}
		}
	}
	return nil
}

func (e *Evaluator) checkCompleteness(slots Slots) string {
	var missing []string
	for _, t := range e.registry.RequiredTypes() {
		if p, ok := slots[t.ID]; !ok || p == nil {
			missing = append(missing, t.Name)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return "missing required components: " + strings.Join(missing, ", ")
}

func (e *Evaluator) checkRules(slots Slots) ([]string, error) {
	var errs []string
	for _, srcType := range e.registry.Types() {
		src, ok := slots[srcType.ID]
		if !ok || src == nil {
			continue
		}
		for _, rule := range e.rules.RulesFor(srcType.ID) {
			dstType, _ := e.registry.Type(rule.TargetTypeID)
			dst, ok := slots[dstType.ID]
			if !ok || dst == nil {
				continue
			}

			srcVal, srcOK := src.Value(rule.SourceAttributeID)
			dstVal, dstOK := dst.Value(rule.TargetAttributeID)
			if !srcOK || !dstOK {
				e.logger.Debug("skipping rule with absent attribute value",
					"rule", rule.ID, "source", src.ID, "target", dst.ID)
				continue
			}
			if !rule.Applies(srcVal) {
				continue
			}

			expected := rule.Expected(srcVal)
			switch rule.RuleType {
			case rules.Required:
				if !catalog.Equal(dstVal, expected) {
					errs = append(errs, fmt.Sprintf("%s %s requires %s %s (found %s)",
						srcType.Name, e.describe(rule.SourceAttributeID, srcVal),
						dstType.Name, e.describe(rule.TargetAttributeID, expected),
						e.format(rule.TargetAttributeID, dstVal)))
				}
			case rules.Incompatible:
				if catalog.Equal(dstVal, expected) {
					errs = append(errs, fmt.Sprintf("%s %s is incompatible with %s %s",
						srcType.Name, e.describe(rule.SourceAttributeID, srcVal),
						dstType.Name, e.describe(rule.TargetAttributeID, dstVal)))
				}
			default:
				return nil, &catalog.IntegrityError{
					Entity:  "compatibility rule",
					ID:      rule.ID,
					Message: fmt.Sprintf("unknown rule type %q", rule.RuleType),
				}
			}
		}
	}
	return errs, nil
}

func (e *Evaluator) checkPower(slots Slots) string {
	if !e.power.enabled() {
		return ""
	}
	psu, ok := slots[e.power.PSUTypeID]
	if !ok || psu == nil {
		return ""
	}
	capVal, ok := psu.Value(e.power.PowerAttributeID)
	if !ok {
		return ""
	}
	capacity, ok := numeric(capVal)
	if !ok {
		return ""
	}

	required := decimal.Zero
	for _, t := range e.registry.Types() {
		p, ok := slots[t.ID]
		if !ok || p == nil {
			continue
		}
		v, ok := p.Value(e.power.TDPAttributeID)
		if !ok {
			continue
		}
		if n, ok := numeric(v); ok {
			required = required.Add(n)
		}
	}

	if required.GreaterThan(capacity) {
		return fmt.Sprintf("insufficient PSU power: %s W required, %s W available",
			required.String(), capacity.String())
	}
	return ""
}

// describe renders "attribute = value" for messages.
func (e *Evaluator) describe(attrID uint, v catalog.Value) string {
	name := fmt.Sprintf("attribute %d", attrID)
	if a, ok := e.attrs[attrID]; ok {
		name = a.Name
	}
	return name + " = " + e.format(attrID, v)
}

func (e *Evaluator) format(attrID uint, v catalog.Value) string {
	if a, ok := e.attrs[attrID]; ok && a.Unit != "" {
		return v.String() + " " + a.Unit
	}
	return v.String()
}

func numeric(v catalog.Value) (decimal.Decimal, bool) {
	switch tv := v.(type) {
	case catalog.NumberValue:
		return tv.Amount, true
	case catalog.StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(string(tv)))
		if err != nil || !catalog.InNumberRange(d) {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}
