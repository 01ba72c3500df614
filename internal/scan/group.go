package scan

import (
	"math"
	"strconv"
	"strings"
)

// Grouping clusters findings so that N occurrences of the same
// effective style collapse into one actionable group. Keys are
// insensitive to node identity: two different nodes with the same raw
// red fill land in the same group. Group order follows first
// appearance in the finding list and members keep scan order, so the
// same findings always produce the same output.

// GroupFindings folds a finding list into ordered groups. No group is
// ever empty; an empty input yields no groups.
func GroupFindings(findings []Finding) []Group {
	var order []string
	members := make(map[string][]Finding)
	for _, f := range findings {
		key := GroupKey(f)
		if _, seen := members[key]; !seen {
			order = append(order, key)
		}
		members[key] = append(members[key], f)
	}
	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{Key: key, Findings: members[key]})
	}
	return groups
}

// GroupKey derives the deterministic cluster key for one finding.
func GroupKey(f Finding) string {
	switch f.Category {
	case CategoryTypography:
		return typographyKey(f)
	case CategoryFill, CategoryStroke:
		return paintKey(f)
	case CategoryVerticalGap, CategoryHorizontalPadding, CategoryVerticalPadding, CategoryCornerRadius:
		return scalarKey(f)
	case CategoryOpacity:
		return opacityKey(f)
	case CategoryTeamLibrary, CategoryLocalLibrary, CategoryMissingLibrary:
		return libraryKey(f)
	}
	return joinKey(string(f.Category), string(f.Binding), f.Property)
}

// typographyKey groups by visual style, never by content: the sample
// text is deliberately excluded.
func typographyKey(f Finding) string {
	v, ok := f.Value.(TypographyValue)
	if !ok {
		return joinKey(string(f.Category), string(f.Binding))
	}
	return joinKey(string(f.Category), v.Family, v.Weight, v.Size)
}

// paintKey quantizes raw colors to 8-bit channels so float noise from
// the host does not split perceptually identical colors.
func paintKey(f Finding) string {
	switch v := f.Value.(type) {
	case ColorValue:
		c := v.Color
		return joinKey(
			string(f.Category),
			string(f.Binding),
			strconv.Itoa(quantize(c.R)),
			strconv.Itoa(quantize(c.G)),
			strconv.Itoa(quantize(c.B)),
			trimNumber(c.A),
		)
	case VariableRefValue:
		return joinKey(string(f.Category), string(f.Binding), v.VariableID)
	}
	return joinKey(string(f.Category), string(f.Binding))
}

// scalarKey carries the side or corner label so paddingTop 12 and
// paddingBottom 12 stay separately actionable.
func scalarKey(f Finding) string {
	value := ""
	if v, ok := f.Value.(ScalarValue); ok {
		value = trimNumber(v.Value)
	}
	return joinKey(string(f.Category), f.Property, value)
}

func opacityKey(f Finding) string {
	display := ""
	if v, ok := f.Value.(ScalarValue); ok {
		display = v.Display
	}
	return joinKey(string(f.Category), display)
}

func libraryKey(f Finding) string {
	v, ok := f.Value.(VariableRefValue)
	if !ok {
		return joinKey(string(f.Category), f.Property)
	}
	return joinKey(string(f.Category), v.LibraryName, v.VariableName, f.Property)
}

func quantize(channel float64) int {
	return int(math.Round(channel * 255))
}

func joinKey(parts ...string) string {
	return strings.Join(parts, ":")
}
