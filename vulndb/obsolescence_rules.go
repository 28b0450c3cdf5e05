// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package vulndb

import (
	"bytes"
	_ "embed"
	"io"
	"strings"
	"time"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

//go:embed obsolescence_rules.yaml
var defaultObsolescenceRules []byte

type obsolescenceRuleEntry struct {
	TechnologyName            string  `yaml:"technologyName"`
	VersionPattern            *string `yaml:"versionPattern"`
	IsObsolete                *bool   `yaml:"isObsolete"`
	EndOfSupport              string  `yaml:"endOfSupport"`
	EndOfLife                 string  `yaml:"endOfLife"`
	ReplacementRecommendation string  `yaml:"replacementRecommendation"`
	Justification             string  `yaml:"justification"`
}

// DefaultObsolescenceRules returns the rules shipped with the binary
func DefaultObsolescenceRules() ([]models.ObsolescenceRule, error) {
	return LoadObsolescenceRules(bytes.NewReader(defaultObsolescenceRules))
}

// LoadObsolescenceRules parses a yaml list of rules. isObsolete defaults to true.
func LoadObsolescenceRules(r io.Reader) ([]models.ObsolescenceRule, error) {
	var entries []obsolescenceRuleEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "could not parse obsolescence rules")
	}

	rules := make([]models.ObsolescenceRule, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.TechnologyName) == "" {
			return nil, errors.Errorf("rule %d has no technologyName", i)
		}
		endOfSupport, err := parseRuleDate(e.EndOfSupport)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %d has an invalid endOfSupport", i)
		}
		endOfLife, err := parseRuleDate(e.EndOfLife)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %d has an invalid endOfLife", i)
		}

		var pattern *string
		if e.VersionPattern != nil {
			pattern = utils.EmptyThenNil(strings.TrimSpace(*e.VersionPattern))
		}

		rules = append(rules, models.ObsolescenceRule{
			TechnologyName:            strings.TrimSpace(e.TechnologyName),
			VersionPattern:            pattern,
			IsObsolete:                utils.OrDefault(e.IsObsolete, true),
			EndOfSupport:              endOfSupport,
			EndOfLife:                 endOfLife,
			ReplacementRecommendation: e.ReplacementRecommendation,
			Justification:             e.Justification,
		})
	}
	return rules, nil
}

func parseRuleDate(s string) (*datatypes.Date, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	d := datatypes.Date(t)
	return &d, nil
}
