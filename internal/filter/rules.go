package filter

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/visibility"
)

// DefaultProfile is applied when no profile is named.
const DefaultProfile = "default"

// Spec describes one filter in a rules file. Only the fields of its Type
// are meaningful.
type Spec struct {
	// Type is one of the Type* constants.
	Type string `json:"type"`
	// Name is the registry name. Defaults to the type, suffixed with a
	// number when that name is already used.
	Name string `json:"name,omitempty"`

	// Categories and Kinds configure a category filter.
	Categories []string `json:"categories,omitempty"`
	Kinds      []string `json:"kinds,omitempty"`

	// Include and Exclude are the glob patterns of an id filter.
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`

	// Selector and ScopeSelector configure a label filter.
	Selector      string `json:"selector,omitempty"`
	ScopeSelector string `json:"scopeSelector,omitempty"`

	// Constraint is the optional semver constraint of a version filter.
	Constraint string `json:"constraint,omitempty"`
}

// Profile is a named, reusable list of filters applied via --profile.
type Profile struct {
	// Description is shown by "descvis rules".
	Description string `json:"description,omitempty"`
	// Extends names a profile whose filters come before these.
	Extends string `json:"extends,omitempty"`
	// Filters are appended to the filters of the extended profile.
	Filters []Spec `json:"filters,omitempty"`
}

// Rules is the content of a rules file.
type Rules struct {
	// Filters are always applied, before the filters of the profile.
	Filters []Spec `json:"filters,omitempty"`
	// Profiles are custom profiles. Built-in profiles take precedence.
	Profiles map[string]Profile `json:"profiles,omitempty"`
}

// builtinProfiles contains the built-in profile definitions.
var builtinProfiles = map[string]Profile{
	DefaultProfile: {
		Description: "hide descriptors that do not apply to the scope kind or are newer than the scope",
		Filters: []Spec{
			{Type: TypeApplicability},
			{Type: TypeVersion},
		},
	},
	"minimal": {
		Description: "only hide descriptors that do not apply to the scope kind",
		Filters: []Spec{
			{Type: TypeApplicability},
		},
	},
	"none": {
		Description: "show every descriptor",
	},
}

// BuiltinProfileNames returns the names of all built-in profiles, sorted.
func BuiltinProfileNames() []string {
	return sortedKeys(builtinProfiles)
}

// IsBuiltinProfile reports whether name is a built-in profile.
func IsBuiltinProfile(name string) bool {
	_, ok := builtinProfiles[name]

	return ok
}

// ResolveProfile resolves a profile name by checking built-in profiles
// first, then custom profiles. The returned profile has its extends chain
// flattened into Filters.
func ResolveProfile(name string, custom map[string]Profile) (Profile, error) {
	return resolveProfile(name, custom, map[string]bool{})
}

func resolveProfile(name string, custom map[string]Profile, visiting map[string]bool) (Profile, error) {
	if p, ok := builtinProfiles[name]; ok {
		return p, nil
	}

	p, ok := custom[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}

	if p.Extends == "" {
		return p, nil
	}

	if visiting[name] {
		return Profile{}, fmt.Errorf("profile %q extends itself", name)
	}

	visiting[name] = true

	base, err := resolveProfile(p.Extends, custom, visiting)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %q extends %q: %w", name, p.Extends, err)
	}

	return mergeProfiles(base, p), nil
}

// mergeProfiles merges an extension profile on top of a base profile.
func mergeProfiles(base, ext Profile) Profile {
	return Profile{
		Description: ext.Description,
		Filters:     append(append([]Spec{}, base.Filters...), ext.Filters...),
	}
}

// Effective returns the filter specs for the named profile: the top-level
// filters followed by those of the profile. An empty name selects
// DefaultProfile. A nil Rules has no top-level filters or custom profiles.
func (r *Rules) Effective(profile string) ([]Spec, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	var (
		base   []Spec
		custom map[string]Profile
	)

	if r != nil {
		base = r.Filters
		custom = r.Profiles
	}

	p, err := ResolveProfile(profile, custom)
	if err != nil {
		return nil, err
	}

	return append(append([]Spec{}, base...), p.Filters...), nil
}

// ProfileNames returns the built-in and custom profile names, sorted and
// without duplicates.
func (r *Rules) ProfileNames() []string {
	set := make(map[string]Profile, len(builtinProfiles))
	for name, p := range builtinProfiles {
		set[name] = p
	}

	if r != nil {
		for name, p := range r.Profiles {
			set[name] = p
		}
	}

	return sortedKeys(set)
}

// Validate resolves and builds every profile.
func (r *Rules) Validate() error {
	var errs []error

	for _, name := range r.ProfileNames() {
		specs, err := r.Effective(name)
		if err == nil {
			_, err = BuildFilters(specs)
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("profile %q: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// LoadRules loads a rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided rules file
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	r, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %q: %w", path, err)
	}

	return r, nil
}

// ParseRules parses a rules document. Unknown fields are rejected.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.UnmarshalStrict(data, &r); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	if r.Profiles == nil {
		r.Profiles = make(map[string]Profile)
	}

	return &r, nil
}

// BuildFilters creates the filters for specs, in order. Names left empty
// default to the type; when that name is taken by another filter, explicit
// or generated, a "-2", "-3", ... suffix is added. Two specs with the same
// explicit name are an error.
func BuildFilters(specs []Spec) ([]visibility.Filter, error) {
	filters := make([]visibility.Filter, 0, len(specs))
	taken := make(map[string]bool, len(specs))
	explicit := make(map[string]int, len(specs))

	for i, s := range specs {
		if s.Name == "" {
			continue
		}

		if j, dup := explicit[s.Name]; dup {
			return nil, fmt.Errorf("filter %d (%s): name %q already used by filter %d", i+1, s.Type, s.Name, j+1)
		}

		explicit[s.Name] = i
		taken[s.Name] = true
	}

	suffixes := make(map[string]int)

	for i, s := range specs {
		name := s.Name
		if name == "" {
			name = uniqueName(strings.ToLower(s.Type), taken, suffixes)
		}

		f, err := buildFilter(name, s)
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s): %w", i+1, s.Type, err)
		}

		filters = append(filters, f)
	}

	return filters, nil
}

// uniqueName returns base, or base with the lowest free numeric suffix,
// and marks the result as taken.
func uniqueName(base string, taken map[string]bool, suffixes map[string]int) string {
	name := base
	for taken[name] {
		suffixes[base]++
		name = fmt.Sprintf("%s-%d", base, suffixes[base]+1)
	}

	taken[name] = true

	return name
}

func buildFilter(name string, s Spec) (visibility.Filter, error) {
	switch strings.ToLower(s.Type) {
	case TypeApplicability:
		return NewApplicabilityFilter(name), nil

	case TypeCategory:
		if len(s.Categories) == 0 {
			return nil, errors.New("categories must not be empty")
		}

		kinds, err := parseKinds(s.Kinds)
		if err != nil {
			return nil, err
		}

		return NewCategoryFilter(name, s.Categories, kinds), nil

	case TypeID:
		if len(s.Include) == 0 && len(s.Exclude) == 0 {
			return nil, errors.New("include or exclude must be set")
		}

		return NewIDFilter(name, s.Include, s.Exclude)

	case TypeLabel:
		return NewLabelFilter(name, s.Selector, s.ScopeSelector)

	case TypeVersion:
		return NewVersionFilter(name, s.Constraint)

	case "":
		return nil, errors.New("type must be set")
	}

	return nil, fmt.Errorf("unknown filter type %q: must be one of %s", s.Type, strings.Join(Types(), ", "))
}

func parseKinds(raw []string) ([]scope.Kind, error) {
	kinds := make([]scope.Kind, 0, len(raw))

	for _, k := range raw {
		kind, err := scope.ParseKind(k)
		if err != nil {
			return nil, err
		}

		kinds = append(kinds, kind)
	}

	return kinds, nil
}

func sortedKeys(m map[string]Profile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
