package model

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DefaultProfileName is the reserved profile that may be synthesized from
// the configured default profile URL when no profile of that name exists.
const DefaultProfileName = "default"

var (
	// ErrProfileNotFound is returned when a profile name does not resolve to
	// a registered or synthesized profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrMissingURL is returned when the resolved parameters do not contain
	// a target url.
	ErrMissingURL = errors.New("missing parameter: url")
)

// Parameter names understood by the test runner.
const (
	ParamURL           = "url"
	ParamConnectivity  = "connectivity"
	ParamLighthouse    = "lighthouse"
	ParamFirstViewOnly = "firstViewOnly"
	ParamRuns          = "runs"
	ParamPingback      = "pingback"
	ParamVideo         = "video"
)

// TestParameters is the set of parameters submitted to the test runner.
type TestParameters map[string]interface{}

// URL returns the target url, or the empty string if it is missing or not a
// string.
func (p TestParameters) URL() string {
	url, _ := p[ParamURL].(string)
	return url
}

// Merge returns a new parameter set with the parameters of each argument
// layered over p, in order.
func (p TestParameters) Merge(layers ...TestParameters) TestParameters {
	out := TestParameters{}
	for k, v := range p {
		out[k] = v
	}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// Profile is a named set of test parameters.
type Profile struct {
	Name       string         `bson:"name" json:"name" yaml:"name"`
	Parameters TestParameters `bson:"parameters" json:"parameters" yaml:"parameters"`
}

// ProfileRegistry maps profile names to their definitions. It is read-only
// once loaded.
type ProfileRegistry map[string]Profile

// Get returns the named profile.
func (r ProfileRegistry) Get(name string) (Profile, bool) {
	profile, ok := r[name]
	return profile, ok
}

// Has reports whether the profile is accepted for results: either it is
// registered or it is the reserved default profile.
func (r ProfileRegistry) Has(name string) bool {
	if _, ok := r[name]; ok {
		return true
	}
	return name == DefaultProfileName
}

// Names returns the registered profile names in sorted order.
func (r ProfileRegistry) Names() []string {
	out := make([]string, 0, len(r))
	for name := range r {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ResolveOptions carries the inputs of ResolveTestParameters.
type ResolveOptions struct {
	ProfileName       string
	Registry          ProfileRegistry
	DefaultProfileURL string
	BaseURL           string
	PingbackToken     string
}

func defaultTestParameters() TestParameters {
	return TestParameters{
		ParamConnectivity:  "Cable",
		ParamLighthouse:    true,
		ParamFirstViewOnly: true,
		ParamRuns:          1,
	}
}

// LookupProfile finds the profile to run, synthesizing the default profile
// from the fallback url when it is not registered.
func LookupProfile(registry ProfileRegistry, name, defaultProfileURL string) (Profile, error) {
	if profile, ok := registry.Get(name); ok {
		return profile, nil
	}

	if name == DefaultProfileName && strings.HasPrefix(defaultProfileURL, "http") {
		return Profile{
			Name:       DefaultProfileName,
			Parameters: TestParameters{ParamURL: defaultProfileURL},
		}, nil
	}

	return Profile{}, errors.Wrapf(ErrProfileNotFound, "profile '%s'", name)
}

// ResolveTestParameters layers the built-in defaults, the profile's
// parameters and the system overrides into the parameter set for a run.
// Overrides always win.
func ResolveTestParameters(opts ResolveOptions) (TestParameters, error) {
	profile, err := LookupProfile(opts.Registry, opts.ProfileName, opts.DefaultProfileURL)
	if err != nil {
		return nil, err
	}

	overrides := TestParameters{
		ParamPingback: PingbackURL(opts.BaseURL, opts.PingbackToken, opts.ProfileName),
		ParamVideo:    true,
	}

	params := defaultTestParameters().Merge(profile.Parameters, overrides)
	if params.URL() == "" {
		return nil, errors.Wrapf(ErrMissingURL, "profile '%s'", opts.ProfileName)
	}

	return params, nil
}
