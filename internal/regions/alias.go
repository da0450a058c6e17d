// Package regions reconciles boundary feature names with the purchase table:
// alias normalization followed by a zero-filling left join.
package regions

import (
	"fmt"
	"os"
	"slices"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"silver-dashboard/internal/errors"
	"silver-dashboard/internal/models"
)

// AliasTable maps deprecated or alternate region spellings to canonical ones.
type AliasTable map[string]string

// DefaultAliases covers the renamed states found in older boundary files.
func DefaultAliases() AliasTable {
	return AliasTable{
		"Orissa":            "Odisha",
		"Uttaranchal":       "Uttarakhand",
		"Jammu and Kashmir": "Jammu & Kashmir",
	}
}

type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliases reads an alias table from YAML:
//
//	aliases:
//	  Orissa: Odisha
func LoadAliases(path string) (AliasTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.MissingResource(path, err)
	}

	var f aliasFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		appErr := errors.Format(path, "cannot decode alias table")
		appErr.Cause = err
		return nil, appErr
	}

	table := AliasTable(f.Aliases)
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Validate rejects tables where a canonical name is itself an alias. Such a
// chain would make Normalize non-idempotent.
func (t AliasTable) Validate() error {
	keys := lo.Keys(t)
	slices.Sort(keys)
	for _, from := range keys {
		to := t[from]
		if to == "" {
			return errors.Validation(fmt.Sprintf("alias %q has an empty canonical name", from))
		}
		if _, chained := t[to]; chained {
			return errors.Validation(fmt.Sprintf("alias %q maps to %q, which is itself an alias", from, to))
		}
	}
	return nil
}

// Canonical returns the canonical spelling of name, or name unchanged.
func (t AliasTable) Canonical(name string) string {
	if canonical, ok := t[name]; ok {
		return canonical
	}
	return name
}

// Normalize returns a copy of features with each Name replaced by its
// canonical spelling. Names absent from the table pass through untouched and
// may later miss in the join; that is left to the join report.
func Normalize(features []models.RegionFeature, aliases AliasTable) []models.RegionFeature {
	out := slices.Clone(features)
	for i := range out {
		out[i].Name = aliases.Canonical(out[i].Name)
	}
	return out
}
