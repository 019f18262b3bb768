// Package proxygen generates forwarding proxies for Go interfaces and named
// types and loads them into the running process.
package proxygen

import (
	"github.com/broady/proxykit/proxygen/golang"
	"github.com/broady/proxykit/proxygen/ir"
)

// DefaultSuffix is appended to the full name of a proxied type.
const DefaultSuffix = "Proxy"

// Transform rewrites the descriptor of a proxied type into the descriptor of
// its proxy class and returns it. The descriptor is modified in place.
//
// Interfaces become classes implementing the original interface; the base
// proxy type becomes the parent; the name gets suffix appended; methods
// marked as constructors are removed and no method stays abstract.
// Parameter and result types are left as they are.
func Transform(desc *ir.ClassDescriptor, baseProxyTypeName, suffix string) *ir.ClassDescriptor {
	if suffix == "" {
		suffix = DefaultSuffix
	}

	if desc.IsInterface {
		desc.IsInterface = false
		desc.ImplementedInterfaces = []string{desc.FullName}
	}
	desc.ParentFullName = baseProxyTypeName

	desc.Origin = desc.FullName
	desc.FullName += suffix
	desc.ShortName = ProxyClassName(desc.FullName)

	for _, m := range desc.Methods.Values() {
		if m.HasModifier(ir.ModifierConstructor) {
			desc.Methods.Delete(m.Name)
			continue
		}
		m.RemoveModifier(ir.ModifierAbstract)
	}
	return desc
}

// ProxyClassName returns the identifier of the proxy class with the given
// full name: "github.com/acme/graph.GraphProxy" becomes
// "github_com_acme_graph_GraphProxy".
func ProxyClassName(fullName string) string {
	return golang.SanitizeIdentifier(fullName)
}
