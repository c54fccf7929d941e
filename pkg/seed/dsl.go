package seed

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/pcshop/configurator/pkg/rules"
)

// RuleExpr is one parsed rule expression:
//
//	cpu.socket requires motherboard.socket
//	cpu.socket requires motherboard.memory_type when "AM5" then "DDR5"
//	gpu.length excludes case.size when "long" then "mini"
type RuleExpr struct {
	Source AttrRef `parser:"@@"`
	Kind   string  `parser:"@( 'requires' | 'incompatible' | 'excludes' )"`
	Target AttrRef `parser:"@@"`
	When   *string `parser:"( 'when' @( String | Number | Ident ) )?"`
	Then   *string `parser:"( 'then' @( String | Number | Ident ) )?"`
}

// AttrRef names an attribute on a component type as type.attribute.
type AttrRef struct {
	Type      string `parser:"@Ident '.'"`
	Attribute string `parser:"@Ident"`
}

func (r AttrRef) String() string { return r.Type + "." + r.Attribute }

var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
	{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_-]*`},
	{Name: "Punct", Pattern: `\.`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var ruleParser = participle.MustBuild[RuleExpr](
	participle.Lexer(ruleLexer),
	participle.Unquote("String"),
	participle.Elide("Whitespace"),
)

// ParseRule parses a single rule expression.
func ParseRule(expr string) (*RuleExpr, error) {
	parsed, err := ruleParser.ParseString("", strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("parse rule %q: %w", expr, err)
	}
	return parsed, nil
}

// RuleType maps the expression keyword to a stored rule type.
func (e *RuleExpr) RuleType() rules.RuleType {
	if e.Kind == "requires" {
		return rules.Required
	}
	return rules.Incompatible
}

// SourceValue returns the "when" value, or "" when the rule applies to
// every source value.
func (e *RuleExpr) SourceValue() string {
	if e.When == nil {
		return ""
	}
	return *e.When
}

// TargetValue returns the "then" value, or "" when the target is compared
// against the source value itself.
func (e *RuleExpr) TargetValue() string {
	if e.Then == nil {
		return ""
	}
	return *e.Then
}

// String renders the expression in canonical form.
func (e *RuleExpr) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", e.Source, e.Kind, e.Target)
	if e.When != nil {
		fmt.Fprintf(&b, " when %q", *e.When)
	}
	if e.Then != nil {
		fmt.Fprintf(&b, " then %q", *e.Then)
	}
	return b.String()
}
