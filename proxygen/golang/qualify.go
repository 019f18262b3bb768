package golang

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// qualifiedRef matches a package-qualified name written with its full import
// path, such as github.com/acme/graph.Node or gopkg.in/yaml.v3.Node.
var qualifiedRef = regexp.MustCompile(`((?:[\w.~-]+/)*[\w.~-]+)\.([A-Za-z_]\w*)`)

// importSpec is a single aliased import of the generated file.
type importSpec struct {
	Alias string
	Path  string
}

// qualifier rewrites full import paths inside type expressions into
// deterministic package aliases.
type qualifier struct {
	aliases map[string]string
}

// collectPaths adds every import path referenced by expr to paths.
func collectPaths(expr string, paths map[string]bool) {
	for _, m := range qualifiedRef.FindAllStringSubmatch(expr, -1) {
		paths[m[1]] = true
	}
}

// newQualifier assigns aliases to paths in sorted order, so the same set of
// paths always yields the same aliases.
func newQualifier(paths map[string]bool) *qualifier {
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	q := &qualifier{aliases: make(map[string]string, len(sorted))}
	used := make(map[string]bool, len(sorted))
	for _, p := range sorted {
		base := packageAlias(p)
		alias := base
		for n := 2; used[alias]; n++ {
			alias = base + strconv.Itoa(n)
		}
		used[alias] = true
		q.aliases[p] = alias
	}
	return q
}

// qualify rewrites the qualified names in expr.
func (q *qualifier) qualify(expr string) string {
	return qualifiedRef.ReplaceAllStringFunc(expr, func(ref string) string {
		m := qualifiedRef.FindStringSubmatch(ref)
		alias, ok := q.aliases[m[1]]
		if !ok {
			return ref
		}
		return alias + "." + m[2]
	})
}

// imports returns the import specs sorted by path.
func (q *qualifier) imports() []importSpec {
	specs := make([]importSpec, 0, len(q.aliases))
	for path, alias := range q.aliases {
		specs = append(specs, importSpec{Alias: alias, Path: path})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Path < specs[j].Path })
	return specs
}

// packageAlias derives a package name from an import path: the last path
// element, skipping a major version suffix, cut at the first dot.
func packageAlias(path string) string {
	segments := strings.Split(path, "/")
	name := segments[len(segments)-1]
	if isMajorVersion(name) && len(segments) > 1 {
		name = segments[len(segments)-2]
	}
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	return SanitizeIdentifier(name)
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}
