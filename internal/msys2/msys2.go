// Package msys2 holds the rules for addressing files on the MSYS2 package
// repository.
//
// It knows which environments and architectures exist, what a package
// file name may look like, and how those three segments become an
// upstream URL. Nothing here touches the network.
package msys2

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultBaseURL is the public MSYS2 repository host.
const DefaultBaseURL = "https://repo.msys2.org"

// Environment is a top-level repository branch (e.g. "msys" or "mingw").
type Environment string

const (
	// EnvironmentMSYS holds the native MSYS tools.
	EnvironmentMSYS Environment = "msys"

	// EnvironmentMinGW holds the cross-compiled toolchain packages.
	EnvironmentMinGW Environment = "mingw"
)

// architectures is the allow-list rule table.
//
// Each environment owns its own set. The sets are looked up by environment,
// never merged, so "clang64" is valid for mingw and invalid for msys.
var architectures = map[Environment]map[string]struct{}{
	EnvironmentMSYS: set(
		"i686",
		"x86_64",
	),
	EnvironmentMinGW: set(
		"clang32",
		"clang64",
		"clangarm64",
		"i686",
		"mingw32",
		"mingw64",
		"sources",
		"ucrt64",
		"x86_64",
	),
}

// packageNamePattern matches word characters, whitespace, dots and dashes.
// Both ends are anchored: a single foreign character rejects the name.
// \w is ASCII only and \s is RE2's [\t\n\f\r ], so a vertical tab is rejected.
var packageNamePattern = regexp.MustCompile(`^[\w\s.\-]+$`)

func set(values ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// PackageFile addresses a single file in the repository.
type PackageFile struct {
	Environment  string
	Architecture string
	Package      string
}

// Validate checks environment, architecture and package in that order.
//
// The environment check is authoritative: when it fails the architecture is
// not looked at. Values are never normalized.
func Validate(environment, architecture, pkg string) (PackageFile, error) {
	archs, ok := architectures[Environment(environment)]
	if !ok {
		return PackageFile{}, &ValidationError{
			Kind:  InvalidEnvironment,
			Value: environment,
		}
	}

	if _, ok := archs[architecture]; !ok {
		return PackageFile{}, &ValidationError{
			Kind:        InvalidArchitecture,
			Value:       architecture,
			Environment: environment,
		}
	}

	if !IsValidPackageName(pkg) {
		return PackageFile{}, &ValidationError{
			Kind:  InvalidPackageName,
			Value: pkg,
		}
	}

	return PackageFile{
		Environment:  environment,
		Architecture: architecture,
		Package:      pkg,
	}, nil
}

// IsValidEnvironment reports whether environment is a known repository branch.
func IsValidEnvironment(environment string) bool {
	_, ok := architectures[Environment(environment)]
	return ok
}

// IsValidArchitecture reports whether architecture exists under environment.
// It is false for every architecture when environment is unknown.
func IsValidArchitecture(environment, architecture string) bool {
	archs, ok := architectures[Environment(environment)]
	if !ok {
		return false
	}
	_, ok = archs[architecture]
	return ok
}

// IsValidPackageName reports whether name is a non-empty package file name
// made only of allowed characters.
func IsValidPackageName(name string) bool {
	return packageNamePattern.MatchString(name)
}

// Environments returns the known environment names.
func Environments() []string {
	return []string{string(EnvironmentMSYS), string(EnvironmentMinGW)}
}

// Architectures returns the architectures allowed under environment,
// or nil when the environment is unknown.
func Architectures(environment string) []string {
	archs, ok := architectures[Environment(environment)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(archs))
	for a := range archs {
		out = append(out, a)
	}
	return out
}

// UpstreamURL builds {base}/{env}/{arch}/{pkg}.
//
// Every segment is escaped on its own with path-segment rules, so a "/"
// inside a value is sent as %2F and a space as %20. A trailing slash on
// base is ignored.
func UpstreamURL(base string, f PackageFile) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		strings.TrimRight(base, "/"),
		url.PathEscape(f.Environment),
		url.PathEscape(f.Architecture),
		url.PathEscape(f.Package),
	)
}
