package cioption

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// RefKind classifies a ref name by the branch model it belongs to.
type RefKind int

const (
	RefOther RefKind = iota
	RefDevelop
	RefFeature
	RefRelease
	RefHotfix
)

func (k RefKind) String() string {
	switch k {
	case RefDevelop:
		return "develop"
	case RefFeature:
		return "feature"
	case RefRelease:
		return "release"
	case RefHotfix:
		return "hotfix"
	default:
		return "other"
	}
}

func (k RefKind) constrained() bool { return k != RefOther }

// KindOf classifies ref, which may carry a refs/heads/ prefix.
func KindOf(ref string) RefKind {
	ref = strings.TrimPrefix(ref, "refs/heads/")
	switch {
	case ref == "develop":
		return RefDevelop
	case strings.HasPrefix(ref, "feature/"):
		return RefFeature
	case strings.HasPrefix(ref, "release/"):
		return RefRelease
	case strings.HasPrefix(ref, "hotfix/"):
		return RefHotfix
	default:
		return RefOther
	}
}

// ChannelOf maps a ref to its publish channel.
func ChannelOf(ref string) (string, bool) {
	switch KindOf(ref) {
	case RefDevelop, RefFeature:
		return "snapshot", true
	case RefRelease, RefHotfix:
		return "release", true
	default:
		name := strings.TrimPrefix(ref, "refs/heads/")
		if name == "master" || name == "main" || strings.HasPrefix(ref, "refs/tags/") || strings.HasPrefix(ref, "v") {
			return "release", true
		}
		return "", false
	}
}

var (
	ErrMissingRef      = errors.New("cioption: ref name is empty")
	ErrVersionMismatch = errors.New("cioption: version does not match branch")
)

// VersionError describes a version rejected for its ref.
type VersionError struct {
	Ref     string
	Version string
	Pattern string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("cioption: version %q on %s must match %s", e.Version, e.Ref, e.Pattern)
}

func (e *VersionError) Unwrap() error { return ErrVersionMismatch }

var (
	numericVersion  = `[0-9]+(\.[0-9]+)*`
	developPattern  = regexp.MustCompile(`^` + numericVersion + `-SNAPSHOT$`)
	releasePattern  = regexp.MustCompile(`^` + numericVersion + `(-SNAPSHOT)?$`)
	featureReplacer = strings.NewReplacer("/", "-", " ", "-")
)

// ValidateVersion checks version against the naming rules of ref:
//
//	develop       N(.N)*-SNAPSHOT
//	feature/<f>   N(.N)*-<f>-SNAPSHOT
//	release/*     N(.N)*(-SNAPSHOT)?
//	hotfix/*      N(.N)*(-SNAPSHOT)?
//
// Other refs are unconstrained.
func ValidateVersion(ref, version string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ErrMissingRef
	}
	var pattern *regexp.Regexp
	switch KindOf(ref) {
	case RefDevelop:
		pattern = developPattern
	case RefFeature:
		feature := strings.TrimPrefix(strings.TrimPrefix(ref, "refs/heads/"), "feature/")
		pattern = regexp.MustCompile(`^` + numericVersion + `-` + regexp.QuoteMeta(featureReplacer.Replace(feature)) + `-SNAPSHOT$`)
	case RefRelease, RefHotfix:
		pattern = releasePattern
	default:
		return nil
	}
	if !pattern.MatchString(version) {
		return &VersionError{Ref: ref, Version: version, Pattern: pattern.String()}
	}
	return nil
}
