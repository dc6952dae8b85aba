package gotemplate

import (
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-backoffice/pkg/format"
)

func registerDefaultFilters() {
	defaults := map[string]pongo2.FilterFunction{
		"trim":      filterTrim,
		"decimal":   filterDecimal,
		"maskvalue": filterMaskValue,
	}
	for name, fn := range defaults {
		if !pongo2.FilterExists(name) {
			_ = pongo2.RegisterFilter(name, fn)
		}
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.IsNil() {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

// filterDecimal formats amounts: {{ amount|decimal }} or {{ rate|decimal:4 }}.
func filterDecimal(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	places := int32(format.DefaultPlaces)
	if param != nil && param.IsInteger() {
		places = int32(param.Integer())
	}
	return pongo2.AsValue(format.Decimal(in.Interface(), places)), nil
}

// filterMaskValue hides sensitive values: {{ iban|maskvalue }} keeps the last
// four characters, {{ pin|maskvalue:0 }} hides everything.
func filterMaskValue(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	visible := 4
	if param != nil && param.IsInteger() {
		visible = param.Integer()
	}
	return pongo2.AsValue(format.Mask(in.Interface(), visible)), nil
}
