package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List component types in build order",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp componentTypeList
		if err := newClient().getJSON(apiPrefix+"/catalog/component-types", &resp); err != nil {
			return err
		}
		if structured() {
			return printOutput(resp)
		}

		table := make([][]string, 0, len(resp.ComponentTypes))
		for _, t := range resp.ComponentTypes {
			names := make([]string, 0, len(t.CompatibilityAttributes))
			for _, a := range t.CompatibilityAttributes {
				names = append(names, a.Name)
			}
			table = append(table, []string{
				strconv.FormatUint(uint64(t.ID), 10),
				t.Slug,
				t.Name,
				yesNo(t.Required),
				strings.Join(names, ", "),
			})
		}
		printTable([]string{"ID", "Slug", "Name", "Required", "Attributes"}, table)
		return nil
	},
}

var attributesCmd = &cobra.Command{
	Use:   "attributes",
	Short: "List catalog attributes",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp attributeList
		if err := newClient().getJSON(apiPrefix+"/catalog/attributes", &resp); err != nil {
			return err
		}
		if structured() {
			return printOutput(resp)
		}

		table := make([][]string, 0, len(resp.Attributes))
		for _, a := range resp.Attributes {
			table = append(table, []string{
				strconv.FormatUint(uint64(a.ID), 10),
				a.Name,
				a.DataType,
				a.Unit,
				yesNo(a.CompatibilityCritical),
				truncate(strings.Join(a.EnumOptions, ", "), 40),
			})
		}
		printTable([]string{"ID", "Name", "Type", "Unit", "Critical", "Options"}, table)
		return nil
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List compatibility rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		var resp ruleList
		if err := client.getJSON(apiPrefix+"/catalog/rules", &resp); err != nil {
			return err
		}
		if structured() {
			return printOutput(resp)
		}

		var types componentTypeList
		if err := client.getJSON(apiPrefix+"/catalog/component-types", &types); err != nil {
			return err
		}
		var attrs attributeList
		if err := client.getJSON(apiPrefix+"/catalog/attributes", &attrs); err != nil {
			return err
		}
		n := newNamer(types.ComponentTypes, attrs.Attributes)

		table := make([][]string, 0, len(resp.Rules))
		for _, r := range resp.Rules {
			table = append(table, []string{
				strconv.FormatUint(uint64(r.ID), 10),
				describeRule(n, r),
				truncate(r.Description, 40),
			})
		}
		printTable([]string{"ID", "Rule", "Description"}, table)
		return nil
	},
}

// namer resolves ids to slugs and attribute names for display.
type namer struct {
	types map[uint]string
	attrs map[uint]string
}

func newNamer(types []componentType, attrs []attribute) namer {
	n := namer{types: map[uint]string{}, attrs: map[uint]string{}}
	for _, t := range types {
		n.types[t.ID] = t.Slug
	}
	for _, a := range attrs {
		n.attrs[a.ID] = a.Name
	}
	return n
}

func (n namer) ref(typeID, attrID uint) string {
	t, ok := n.types[typeID]
	if !ok {
		t = fmt.Sprintf("type#%d", typeID)
	}
	a, ok := n.attrs[attrID]
	if !ok {
		a = fmt.Sprintf("attr#%d", attrID)
	}
	return t + "." + a
}

// describeRule renders a rule in the seed file notation, for example
// `cpu.socket requires motherboard.socket`.
func describeRule(n namer, r rule) string {
	verb := "incompatible"
	if r.RuleType == "required" {
		verb = "requires"
	}
	s := fmt.Sprintf("%s %s %s", n.ref(r.SourceTypeID, r.SourceAttributeID), verb, n.ref(r.TargetTypeID, r.TargetAttributeID))
	if r.SourceValue != "" {
		s += fmt.Sprintf(" when %q", r.SourceValue)
	}
	if r.TargetValue != "" {
		s += fmt.Sprintf(" then %q", r.TargetValue)
	}
	return s
}
