// Copyright (C) 2025 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package normalize

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode"

	_ "embed"

	"github.com/gosimple/slug"
	"github.com/package-url/packageurl-go"
	"gopkg.in/yaml.v3"
)

type productAliases struct {
	Synonyms      map[string][]string `yaml:"synonyms"`
	StripPrefixes []string            `yaml:"stripPrefixes"`
	StripSuffixes []string            `yaml:"stripSuffixes"`
	// GenericNames are never used as a derived variant
	GenericNames []string `yaml:"genericNames"`
}

// minDerivedLength is the shortest variant which is not the package name itself
const minDerivedLength = 3

var (
	//go:embed product_aliases.yaml
	productAliasesYAML []byte
	productAliasesOnce sync.Once
	aliases            productAliases
)

// trailing version numbers of distribution package names: libssl1.1, python3, postgresql-14
var trailingVersionRe = regexp.MustCompile(`[-_.]?[0-9][0-9.]*$`)

func loadProductAliases() productAliases {
	productAliasesOnce.Do(func() {
		if err := yaml.Unmarshal(productAliasesYAML, &aliases); err != nil {
			panic(fmt.Sprintf("failed to unmarshal product aliases: %v", err))
		}
	})
	return aliases
}

type variantSet struct {
	seen map[string]struct{}
	list []string
}

func (v *variantSet) add(s string) {
	if s == "" {
		return
	}
	if _, ok := v.seen[s]; ok {
		return
	}
	v.seen[s] = struct{}{}
	v.list = append(v.list, s)
}

// addForms adds the name itself and its underscore separated form which is
// what nvd mostly uses for multi word products (http_server).
func (v *variantSet) addForms(s string) {
	v.add(s)
	v.add(strings.NewReplacer("-", "_", " ", "_").Replace(s))
}

func (v *variantSet) addSynonyms(a productAliases, s string) {
	for _, syn := range a.Synonyms[s] {
		v.add(syn)
	}
}

// addDerived adds a name derived by stripping, together with its forms and synonyms.
// Names which are too short, contain no letter or are a generic word are dropped.
func (v *variantSet) addDerived(a productAliases, s string) {
	if !isUsableVariant(a, s) {
		return
	}
	v.addForms(s)
	v.addSynonyms(a, s)
}

func isUsableVariant(a productAliases, s string) bool {
	if len(s) < minDerivedLength {
		return false
	}
	if !strings.ContainsFunc(s, unicode.IsLetter) {
		return false
	}
	return !slices.Contains(a.GenericNames, s)
}

// packageName extracts the bare name from a purl. Anything else is returned unchanged.
func packageName(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "pkg:") {
		if purl, err := packageurl.FromString(raw); err == nil {
			return purl.Name
		}
	}
	return raw
}

// GenerateVariants returns the ordered candidate product names for a package name.
// The first element is the lowercased literal name, later elements are looser aliases.
// The result is deterministic and never empty.
func GenerateVariants(rawPackageName string) []string {
	a := loadProductAliases()

	literal := strings.ToLower(packageName(rawPackageName))
	set := variantSet{seen: make(map[string]struct{})}

	set.addForms(literal)
	set.addSynonyms(a, literal)

	// maven coordinates (group:artifact) and path like names (vendor/product)
	name := literal
	if i := strings.LastIndexAny(name, ":/"); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
		set.addForms(name)
		set.addSynonyms(a, name)
	}

	dashed := strings.NewReplacer("_", "-", " ", "-").Replace(name)
	stripped := stripAffixes(a, dashed)
	for _, st := range stripped {
		set.addDerived(a, st)
	}

	// libssl1.1, python3, postgresql-14
	for _, base := range append([]string{dashed}, stripped...) {
		if noVersion := trailingVersionRe.ReplaceAllString(base, ""); noVersion != base {
			set.addDerived(a, noVersion)
		}
	}

	set.add(slug.Make(literal))

	if len(set.list) == 0 {
		return []string{literal}
	}
	return set.list
}

// stripAffixes returns the name without its ecosystem prefix and the name without its
// packaging suffix. Both are never stripped from the same name, so "python-http-client"
// yields "http-client" and "python-http" but not "http".
func stripAffixes(a productAliases, name string) []string {
	var result []string
	for _, p := range a.StripPrefixes {
		if strings.HasPrefix(name, p) && len(name) > len(p) {
			result = append(result, strings.TrimPrefix(name, p))
			break
		}
	}
	for _, suffix := range a.StripSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			result = append(result, strings.TrimSuffix(name, suffix))
			break
		}
	}
	return result
}

// NormalizeTechnologyName strips separators and whitespace and lowercases the name.
// "Apache_HTTP-Server 2" becomes "apachehttpserver2".
func NormalizeTechnologyName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch r {
		case '_', '-', '.', ' ', '\t', '\n', '\r':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
