// Package cliparse turns the reference CLI's flag values — filter
// expression strings, repeated "namespace.field=value" property
// assignments — into the internal/expr and internal/properties types the
// archive orchestrator expects. Every CLI-supplied scalar is treated as
// text (values.NewText); the query language's own literal forms (quoted
// UUIDs, timestamps, WKT geometry) are reachable through --filter since
// those go through expr.Parse, but --set/--property flags keep the CLI
// surface thin rather than reimplementing the literal grammar twice.
package cliparse

import (
	"strings"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/dbbackend"
	"github.com/stcorp/muninn/internal/expr"
	"github.com/stcorp/muninn/internal/properties"
	"github.com/stcorp/muninn/internal/schema"
	"github.com/stcorp/muninn/internal/values"
)

// ErrFlag is the root of every flag-parsing error this package raises.
var ErrFlag apperrors.Error = apperrors.ErrConfig.Msg("invalid command-line argument")

// Filter parses and analyzes a --filter expression string against reg. An
// empty raw string means "no filter" (nil, nil).
func Filter(raw string, reg *schema.Registry) (expr.Node, apperrors.Error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	node, err := expr.Parse(raw)
	if err != nil {
		return nil, err
	}
	analysis, err := expr.Analyze(node, reg, nil)
	if err != nil {
		return nil, err
	}
	if len(analysis.FreeParams) > 0 {
		return nil, ErrFlag.Msg("filter references undefined parameter(s): " + strings.Join(analysis.FreeParams, ", "))
	}
	return analysis.Node, nil
}

// Assignment splits one "namespace.field=value" flag argument.
func Assignment(raw string) (namespace, field, value string, err apperrors.Error) {
	eq := strings.IndexByte(raw, '=')
	if eq < 0 {
		return "", "", "", ErrFlag.Msg("expected namespace.field=value, got " + raw)
	}
	key, value := raw[:eq], raw[eq+1:]
	dot := strings.IndexByte(key, '.')
	if dot < 0 {
		return "", "", "", ErrFlag.Msg("expected namespace.field=value, got " + raw)
	}
	return key[:dot], key[dot+1:], value, nil
}

// Properties builds a properties.Container from repeated
// "namespace.field=value" flag arguments.
func Properties(assignments []string) (*properties.Container, apperrors.Error) {
	props := properties.New()
	for _, raw := range assignments {
		ns, field, value, err := Assignment(raw)
		if err != nil {
			return nil, err
		}
		props.Set(ns, field, values.NewText(value))
	}
	return props, nil
}

// OrderTerms parses repeated "--order-by" values of the form "field",
// "+field" (ascending), "-field" (descending), or "field:asc"/"field:desc".
func OrderTerms(raw []string) ([]dbbackend.OrderTerm, apperrors.Error) {
	terms := make([]dbbackend.OrderTerm, 0, len(raw))
	for _, r := range raw {
		desc := false
		switch {
		case strings.HasPrefix(r, "-"):
			desc, r = true, r[1:]
		case strings.HasPrefix(r, "+"):
			r = r[1:]
		}
		field, dir, has := strings.Cut(r, ":")
		if has {
			switch dir {
			case "desc":
				desc = true
			case "asc":
				desc = false
			default:
				return nil, ErrFlag.Msg("order-by direction must be asc or desc, got " + dir)
			}
		}
		terms = append(terms, dbbackend.OrderTerm{Field: field, Desc: desc})
	}
	return terms, nil
}

// GroupByKeys parses repeated "--group-by" values of the form "field" or
// "field.bin" (e.g. "archive_date.year").
func GroupByKeys(raw []string) []dbbackend.GroupByKey {
	keys := make([]dbbackend.GroupByKey, 0, len(raw))
	for _, r := range raw {
		field, bin, has := strings.Cut(r, ".")
		if !has {
			keys = append(keys, dbbackend.GroupByKey{Field: field})
			continue
		}
		keys = append(keys, dbbackend.GroupByKey{Field: field, Bin: dbbackend.TimestampBin(bin)})
	}
	return keys
}

// Aggregates parses repeated "--aggregate" values of the form
// "func:field:alias" (e.g. "max:size:max_size") or the synthesized
// "validity_duration:alias".
func Aggregates(raw []string) ([]dbbackend.Aggregate, apperrors.Error) {
	aggs := make([]dbbackend.Aggregate, 0, len(raw))
	for _, r := range raw {
		parts := strings.Split(r, ":")
		if len(parts) == 2 && parts[0] == "validity_duration" {
			aggs = append(aggs, dbbackend.Aggregate{ValidityDuration: true, Alias: parts[1]})
			continue
		}
		if len(parts) != 3 {
			return nil, ErrFlag.Msg("expected func:field:alias or validity_duration:alias, got " + r)
		}
		aggs = append(aggs, dbbackend.Aggregate{
			Func:  dbbackend.AggregateFunc(parts[0]),
			Field: parts[1],
			Alias: parts[2],
		})
	}
	return aggs, nil
}
