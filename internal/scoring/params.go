// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package scoring

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/secscore-io/secscore/internal/category"
	"github.com/secscore-io/secscore/internal/types"
)

// ParamTable maps a category tag to its Asymmetric Laplace parameters.
type ParamTable map[string]types.ModelParams

// LoadParams reads the AL parameter file. It errors if the mandatory
// "default" key is missing, per spec.md §6.
func LoadParams(path string) (ParamTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading AL parameter file: %w", err)
	}
	var table ParamTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing AL parameter file: %w", err)
	}
	if _, ok := table[category.Default]; !ok {
		return nil, fmt.Errorf("AL parameter file missing mandatory %q key", category.Default)
	}
	return table, nil
}

// For looks up params for the given category, falling back to
// "default" when the category has no dedicated entry.
func (t ParamTable) For(cat string) types.ModelParams {
	if p, ok := t[cat]; ok {
		return p
	}
	return t[category.Default]
}
