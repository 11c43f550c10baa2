package config

import (
	"fmt"
	"sort"

	"github.com/datavet/datavet/internal/catalog"
)

// BuildCatalog assembles the table's column catalog from the merged
// document: expected columns give names and external types, null_columns
// give nullability, scd_info and timeliness_columns assign role tags, and
// validation_rules attach compiled rule predicates.
func BuildCatalog(doc *Document) (*catalog.Catalog, error) {
	nullable := map[string]bool{}
	for _, c := range doc.ColumnsInfo.NullColumns {
		nullable[c] = true
	}

	roleByColumn := map[string][]catalog.Role{}
	addRole := func(col string, role catalog.Role) {
		if col != "" {
			roleByColumn[col] = append(roleByColumn[col], role)
		}
	}
	businessKey := doc.SCDInfo.BusinessKey
	if len(businessKey) == 0 {
		businessKey = doc.ColumnsInfo.UniqueColumns
	}
	for _, col := range businessKey {
		addRole(col, catalog.RoleBusinessKey)
	}
	if doc.SCDInfo.Enabled {
		addRole(doc.SCDInfo.SurrogateKey, catalog.RoleSurrogateKey)
		addRole(doc.SCDInfo.HashMajor, catalog.RoleHashMajor)
		addRole(doc.SCDInfo.HashMinor, catalog.RoleHashMinor)
		addRole(doc.SCDInfo.EffectiveDate, catalog.RoleEffectiveDate)
		addRole(doc.SCDInfo.EndDate, catalog.RoleEndDate)
		addRole(doc.SCDInfo.CurrentIndicator, catalog.RoleCurrentIndicator)
		addRole(doc.SCDInfo.DeleteIndicator, catalog.RoleDeleteIndicator)
	}
	for col := range doc.ColumnsInfo.TimelinessColumns {
		addRole(col, catalog.RoleTimelinessMarker)
	}

	specs := make([]catalog.ColumnSpec, 0, len(doc.ColumnsInfo.ExpectedColumns))
	seen := map[string]bool{}
	for _, def := range doc.ColumnsInfo.ExpectedColumns {
		name, extType, err := catalog.ParseColumnDef(def)
		if err != nil {
			return nil, NewError(ErrCodeParse, "columns_info.expected_columns", err.Error())
		}
		rules, err := buildRules(doc.ColumnsInfo.ValidationRules[name])
		if err != nil {
			return nil, NewError(ErrCodeParse, "columns_info.validation_rules."+name, err.Error())
		}
		specs = append(specs, catalog.ColumnSpec{
			Name:          name,
			ExternalType:  extType,
			Nullable:      nullable[name],
			Roles:         roleByColumn[name],
			Rules:         rules,
			ExpectedHours: doc.ColumnsInfo.TimelinessColumns[name],
		})
		seen[name] = true
	}

	// Rules and roles must refer to declared columns.
	for col := range doc.ColumnsInfo.ValidationRules {
		if !seen[col] {
			return nil, NewError(ErrCodeUnknownKey, "columns_info.validation_rules."+col,
				"rule refers to a column not in expected_columns")
		}
	}
	for col := range roleByColumn {
		if !seen[col] {
			return nil, NewError(ErrCodeSCDMetadata, "scd_info",
				fmt.Sprintf("column %q is tagged with a role but not declared in expected_columns", col))
		}
	}

	return catalog.New(doc.Table, specs)
}

// buildRules converts a column's raw rule declarations into compiled
// catalog rules. Rule kinds are processed in sorted order for a stable
// catalog regardless of YAML map iteration.
func buildRules(raw map[string]any) ([]catalog.Rule, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	kinds := make([]string, 0, len(raw))
	for k := range raw {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	rules := make([]catalog.Rule, 0, len(kinds))
	for _, kind := range kinds {
		r, err := buildRule(catalog.RuleKind(kind), raw[kind])
		if err != nil {
			return nil, err
		}
		if err := r.Compile(); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func buildRule(kind catalog.RuleKind, param any) (catalog.Rule, error) {
	r := catalog.Rule{Kind: kind}
	switch kind {
	case catalog.RuleRegexMatch:
		r.Pattern = scalarString(param)
	case catalog.RuleValueEqual, catalog.RuleGreaterThan:
		r.Value = scalarString(param)
	case catalog.RuleRange:
		m, ok := param.(map[string]any)
		if !ok {
			return r, fmt.Errorf("rule %s expects {min, max}", kind)
		}
		r.Min = scalarString(m["min"])
		r.Max = scalarString(m["max"])
	case catalog.RuleEnum:
		list, ok := param.([]any)
		if !ok {
			return r, fmt.Errorf("rule %s expects a list of allowed values", kind)
		}
		for _, v := range list {
			r.Allowed = append(r.Allowed, scalarString(v))
		}
	case catalog.RuleNonNegative:
		// Parameter is a bare enable flag; nothing to carry.
	case catalog.RuleRequiresCol:
		r.Column = scalarString(param)
	default:
		return r, fmt.Errorf("unknown rule kind %q", kind)
	}
	return r, nil
}

func scalarString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
