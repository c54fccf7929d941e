package compat

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcshop/configurator/pkg/catalog"
	"github.com/pcshop/configurator/pkg/rules"
)

const (
	attrSocket uint = iota + 1
	attrTDP
	attrPower
	attrMemory
)

const (
	typeCPU uint = iota + 1
	typeBoard
	typeGPU
	typePSU
)

func testRegistry() *catalog.Registry {
	return catalog.NewRegistry([]catalog.ComponentType{
		{ID: typePSU, Name: "Power supply", Slug: "psu", Required: true, Order: 4},
		{ID: typeCPU, Name: "Processor", Slug: "cpu", Required: true, Order: 1},
		{ID: typeBoard, Name: "Motherboard", Slug: "motherboard", Required: true, Order: 2},
		{ID: typeGPU, Name: "Graphics card", Slug: "gpu", Order: 3},
	})
}

func testAttrs() catalog.AttributeIndex {
	return catalog.NewAttributeIndex([]catalog.Attribute{
		{ID: attrSocket, Name: "socket", DataType: catalog.TypeEnum},
		{ID: attrTDP, Name: "tdp", DataType: catalog.TypeNumber, Unit: "W"},
		{ID: attrPower, Name: "power", DataType: catalog.TypeNumber, Unit: "W"},
		{ID: attrMemory, Name: "memory_type", DataType: catalog.TypeEnum},
	})
}

func product(id uint, price string, values map[uint]catalog.Value) *catalog.Product {
	p := &catalog.Product{ID: id, Price: decimal.RequireFromString(price)}
	for attrID, v := range values {
		p.Values = append(p.Values, catalog.NewAttributeValue(id, attrID, v))
	}
	return p
}

func socketRule(id uint, created time.Time) rules.CompatibilityRule {
	return rules.CompatibilityRule{
		ID: id, SourceTypeID: typeCPU, SourceAttributeID: attrSocket,
		TargetTypeID: typeBoard, TargetAttributeID: attrSocket,
		RuleType: rules.Required, CreatedAt: created,
	}
}

var powerBudget = PowerBudget{PSUTypeID: typePSU, TDPAttributeID: attrTDP, PowerAttributeID: attrPower}

func TestEvaluate_EmptyBuild(t *testing.T) {
	ev := NewEvaluator(testRegistry(), testAttrs(), rules.NewRuleSet(nil), WithPowerBudget(powerBudget))

	report, err := ev.Evaluate(Slots{})
	require.NoError(t, err)
	assert.False(t, report.IsValid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "missing required components: Processor, Motherboard, Power supply", report.Errors[0])
}

func TestEvaluate_NoRequiredTypes(t *testing.T) {
	reg := catalog.NewRegistry([]catalog.ComponentType{{ID: typeGPU, Name: "Graphics card"}})
	ev := NewEvaluator(reg, testAttrs(), nil)

	report, err := ev.Evaluate(Slots{})
	require.NoError(t, err)
	assert.True(t, report.IsValid)
	assert.NotNil(t, report.Errors)
	assert.Empty(t, report.Errors)
}

func TestEvaluate_SocketMismatch(t *testing.T) {
	ev := NewEvaluator(testRegistry(), testAttrs(),
		rules.NewRuleSet([]rules.CompatibilityRule{socketRule(1, time.Now())}))

	slots := Slots{
		typeCPU:   product(10, "300", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM5")}),
		typeBoard: product(11, "150", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM4")}),
		typePSU:   product(12, "60", map[uint]catalog.Value{attrPower: catalog.Int(650)}),
	}
	report, err := ev.Evaluate(slots)
	require.NoError(t, err)
	assert.False(t, report.IsValid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "Processor socket = AM5 requires Motherboard socket = AM5 (found AM4)", report.Errors[0])

	slots[typeBoard] = product(13, "150", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM5")})
	report, err = ev.Evaluate(slots)
	require.NoError(t, err)
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Errors)
}

func TestEvaluate_RulesAreDirectional(t *testing.T) {
	// Only Board -> CPU is declared; a CPU -> Board check must not be inferred.
	rule := rules.CompatibilityRule{
		ID: 1, SourceTypeID: typeBoard, SourceAttributeID: attrMemory,
		TargetTypeID: typeCPU, TargetAttributeID: attrMemory,
		RuleType: rules.Required,
	}
	ev := NewEvaluator(testRegistry(), testAttrs(), rules.NewRuleSet([]rules.CompatibilityRule{rule}))

	slots := Slots{
		typeCPU:   product(10, "300", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM5")}),
		typeBoard: product(11, "150", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM4")}),
		typePSU:   product(12, "60", nil),
	}
	report, err := ev.Evaluate(slots)
	require.NoError(t, err)
	assert.True(t, report.IsValid, "socket mismatch must not be reported without a socket rule: %v", report.Errors)
}

func TestEvaluate_SkipsAbsentValues(t *testing.T) {
	ev := NewEvaluator(testRegistry(), testAttrs(),
		rules.NewRuleSet([]rules.CompatibilityRule{socketRule(1, time.Now())}))

	slots := Slots{
		typeCPU:   product(10, "300", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM5")}),
		typeBoard: product(11, "150", nil),
		typePSU:   product(12, "60", nil),
	}
	report, err := ev.Evaluate(slots)
	require.NoError(t, err)
	assert.True(t, report.IsValid)

	// Empty target slot is skipped too; only completeness fails.
	delete(slots, typeBoard)
	report, err = ev.Evaluate(slots)
	require.NoError(t, err)
	assert.Equal(t, []string{"missing required components: Motherboard"}, report.Errors)
}

func TestEvaluate_Incompatible(t *testing.T) {
	rule := rules.CompatibilityRule{
		ID: 1, SourceTypeID: typeCPU, SourceAttributeID: attrSocket,
		TargetTypeID: typeGPU, TargetAttributeID: attrSocket,
		RuleType: rules.Incompatible, SourceValue: "LGA1700", TargetValue: "legacy",
	}
	ev := NewEvaluator(testRegistry(), testAttrs(), rules.NewRuleSet([]rules.CompatibilityRule{rule}))

	base := Slots{
		typeBoard: product(11, "150", nil),
		typePSU:   product(12, "60", nil),
		typeGPU:   product(13, "500", map[uint]catalog.Value{attrSocket: catalog.StringValue("legacy")}),
	}

	base[typeCPU] = product(10, "300", map[uint]catalog.Value{attrSocket: catalog.EnumValue("LGA1700")})
	report, err := ev.Evaluate(base)
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "Processor socket = LGA1700 is incompatible with Graphics card socket = legacy", report.Errors[0])

	// Source value gate: the rule does not fire for other sockets.
	base[typeCPU] = product(10, "300", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM5")})
	report, err = ev.Evaluate(base)
	require.NoError(t, err)
	assert.True(t, report.IsValid)
}

func TestEvaluate_NumericNormalization(t *testing.T) {
	rule := rules.CompatibilityRule{
		ID: 1, SourceTypeID: typeCPU, SourceAttributeID: attrTDP,
		TargetTypeID: typeBoard, TargetAttributeID: attrTDP,
		RuleType: rules.Required,
	}
	ev := NewEvaluator(testRegistry(), testAttrs(), rules.NewRuleSet([]rules.CompatibilityRule{rule}))

	slots := Slots{
		typeCPU:   product(10, "300", map[uint]catalog.Value{attrTDP: catalog.Int(65)}),
		typeBoard: product(11, "150", map[uint]catalog.Value{attrTDP: catalog.Number(decimal.RequireFromString("65.000"))}),
		typePSU:   product(12, "60", nil),
	}
	report, err := ev.Evaluate(slots)
	require.NoError(t, err)
	assert.True(t, report.IsValid, report.Errors)
}

func TestEvaluate_PowerBudget(t *testing.T) {
	ev := NewEvaluator(testRegistry(), testAttrs(), nil, WithPowerBudget(powerBudget))

	slots := Slots{
		typeCPU:   product(10, "300", map[uint]catalog.Value{attrTDP: catalog.Int(125)}),
		typeBoard: product(11, "150", nil),
		typeGPU:   product(13, "800", map[uint]catalog.Value{attrTDP: catalog.Int(320)}),
		typePSU:   product(12, "60", map[uint]catalog.Value{attrPower: catalog.Int(450)}),
	}
	report, err := ev.Evaluate(slots)
	require.NoError(t, err)
	assert.True(t, report.IsValid, "450 W covers 445 W: %v", report.Errors)

	slots[typePSU] = product(14, "45", map[uint]catalog.Value{attrPower: catalog.Int(400)})
	report, err = ev.Evaluate(slots)
	require.NoError(t, err)
	assert.False(t, report.IsValid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "insufficient PSU power: 445 W required, 400 W available", report.Errors[0])

	// No PSU selected: completeness fires, power budget does not.
	delete(slots, typePSU)
	report, err = ev.Evaluate(slots)
	require.NoError(t, err)
	assert.Equal(t, []string{"missing required components: Power supply"}, report.Errors)
}

func TestEvaluate_PowerBudgetTextValues(t *testing.T) {
	ev := NewEvaluator(testRegistry(), testAttrs(), nil, WithPowerBudget(powerBudget))

	slots := Slots{
		typeCPU:   product(10, "300", map[uint]catalog.Value{attrTDP: catalog.StringValue("125")}),
		typeBoard: product(11, "150", nil),
		typeGPU:   product(13, "800", map[uint]catalog.Value{attrTDP: catalog.StringValue("1e50000000")}),
		typePSU:   product(12, "60", map[uint]catalog.Value{attrPower: catalog.Int(100)}),
	}
	report, err := ev.Evaluate(slots)
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "insufficient PSU power: 125 W required, 100 W available", report.Errors[0])

	slots[typePSU] = product(12, "60", map[uint]catalog.Value{attrPower: catalog.StringValue("1e-50000000")})
	report, err = ev.Evaluate(slots)
	require.NoError(t, err)
	assert.True(t, report.IsValid, "unusable PSU rating skips the check: %v", report.Errors)
}

func TestEvaluate_ErrorOrdering(t *testing.T) {
	later := time.Now()
	earlier := later.Add(-time.Hour)
	memRule := rules.CompatibilityRule{
		ID: 2, SourceTypeID: typeCPU, SourceAttributeID: attrMemory,
		TargetTypeID: typeBoard, TargetAttributeID: attrMemory,
		RuleType: rules.Required, CreatedAt: later,
	}
	ev := NewEvaluator(testRegistry(), testAttrs(),
		rules.NewRuleSet([]rules.CompatibilityRule{memRule, socketRule(1, earlier)}),
		WithPowerBudget(powerBudget))

	slots := Slots{
		typeCPU: product(10, "300", map[uint]catalog.Value{
			attrSocket: catalog.EnumValue("AM5"), attrMemory: catalog.EnumValue("DDR5"), attrTDP: catalog.Int(170),
		}),
		typeBoard: product(11, "150", map[uint]catalog.Value{
			attrSocket: catalog.EnumValue("AM4"), attrMemory: catalog.EnumValue("DDR4"),
		}),
		typeGPU: product(13, "800", map[uint]catalog.Value{attrTDP: catalog.Int(320)}),
	}
	// GPU is optional and the PSU is missing, so power is skipped.
	report, err := ev.Evaluate(slots)
	require.NoError(t, err)
	require.Len(t, report.Errors, 3)
	assert.Equal(t, "missing required components: Power supply", report.Errors[0])
	assert.Contains(t, report.Errors[1], "socket = AM5")
	assert.Contains(t, report.Errors[2], "memory_type = DDR5")

	slots[typePSU] = product(12, "60", map[uint]catalog.Value{attrPower: catalog.Int(300)})
	report, err = ev.Evaluate(slots)
	require.NoError(t, err)
	require.Len(t, report.Errors, 3)
	assert.Contains(t, report.Errors[2], "insufficient PSU power: 490 W required, 300 W available")
}

func TestEvaluate_Idempotent(t *testing.T) {
	ev := NewEvaluator(testRegistry(), testAttrs(),
		rules.NewRuleSet([]rules.CompatibilityRule{socketRule(1, time.Now())}), WithPowerBudget(powerBudget))
	slots := Slots{
		typeCPU:   product(10, "300", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM5"), attrTDP: catalog.Int(500)}),
		typeBoard: product(11, "150", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM4")}),
		typePSU:   product(12, "60", map[uint]catalog.Value{attrPower: catalog.Int(400)}),
	}
	first, err := ev.Evaluate(slots)
	require.NoError(t, err)
	second, err := ev.Evaluate(slots)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluate_IntegrityErrors(t *testing.T) {
	ev := NewEvaluator(testRegistry(), testAttrs(), nil)
	_, err := ev.Evaluate(Slots{99: product(1, "1", nil)})
	var ierr *catalog.IntegrityError
	require.True(t, errors.As(err, &ierr))

	dangling := rules.CompatibilityRule{
		ID: 7, SourceTypeID: typeCPU, SourceAttributeID: attrSocket,
		TargetTypeID: 99, TargetAttributeID: attrSocket, RuleType: rules.Required,
	}
	ev = NewEvaluator(testRegistry(), testAttrs(), rules.NewRuleSet([]rules.CompatibilityRule{dangling}))
	_, err = ev.Evaluate(Slots{typeCPU: product(1, "1", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM5")})})
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, uint(7), ierr.ID)
}

func TestEvaluate_RuleWithUnknownSourceType(t *testing.T) {
	orphan := rules.CompatibilityRule{
		ID: 9, SourceTypeID: 99, SourceAttributeID: attrSocket,
		TargetTypeID: typeBoard, TargetAttributeID: attrSocket, RuleType: rules.Required,
	}
	ev := NewEvaluator(testRegistry(), testAttrs(), rules.NewRuleSet([]rules.CompatibilityRule{socketRule(1, time.Now()), orphan}))

	_, err := ev.Evaluate(Slots{
		typeCPU:   product(1, "1", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM5")}),
		typeBoard: product(2, "1", map[uint]catalog.Value{attrSocket: catalog.EnumValue("AM5")}),
	})
	var ierr *catalog.IntegrityError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, uint(9), ierr.ID)
	assert.Contains(t, ierr.Message, "source component type 99")

	_, err = ev.Evaluate(Slots{})
	assert.True(t, errors.As(err, &ierr), "a dangling rule is reported even for an empty build")
}
