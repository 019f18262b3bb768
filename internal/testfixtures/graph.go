// Package testfixtures provides types used for testing proxy generation.
package testfixtures

import (
	"errors"
	"fmt"
)

// CONST1 is referenced by a constant default.
const CONST1 = "CONST1_VALUE"

// GraphInterface is a test fixture whose methods return the interface itself.
type GraphInterface interface {
	NodesCount(previousNodesCount int) int
	GetGraphInstance() GraphInterface
	MakeNewGraph() GraphInterface
}

// Graph implements GraphInterface.
type Graph struct {
	Name string
}

func (g *Graph) NodesCount(previousNodesCount int) int {
	return previousNodesCount + 1
}

func (g *Graph) GetGraphInstance() GraphInterface {
	return g
}

func (g *Graph) MakeNewGraph() GraphInterface {
	return &Graph{Name: g.Name}
}

// Countable is implemented by types that have a size.
type Countable interface {
	Count() int
}

// Node is a test fixture returned by node interfaces.
type Node struct{}

// NodeGrandParentInterface is the root of the node interface hierarchy.
type NodeGrandParentInterface interface {
	GrandParentMethod1() []any
	GrandParentMethod2() []any
	GrandParentMethod3() Node
	GrandParentMethod4() Node
}

// NodeParentInterface embeds NodeGrandParentInterface.
type NodeParentInterface interface {
	NodeGrandParentInterface

	ParentMethod1() NodeParentInterface
	ParentMethod2()
}

// NodeInterface is a test fixture covering every parameter form.
type NodeInterface interface {
	Countable
	NodeParentInterface

	//proxy:default param6 3.5
	//proxy:default param7 []any{}
	//proxy:const param8 CONST1
	NodeInterfaceMethod1(param1 any, param2 int, param3 []string, param4 interface{}, param5 *bool, param6 float64, param7 []any, param8 string) *int
	NodeInterfaceMethod2()
}

// IntersectionTypes takes and returns intersection types.
type IntersectionTypes struct{}

func (IntersectionTypes) Param(param interface {
	fmt.Stringer
	Countable
}) {
}

func (IntersectionTypes) Result() interface {
	fmt.Stringer
	Countable
} {
	return nil
}

// Variadic has unnamed and variadic parameters.
type Variadic interface {
	//proxy:default sep ", "
	Join(sep string, parts ...string) string
	Skip(int, string) bool
}

// ErrStall is returned by Engine.Start without fuel.
var ErrStall = errors.New("engine stalled")

// EngineInterface is a test fixture whose method fails.
type EngineInterface interface {
	Start(fuel int) (bool, error)
}

// Engine implements EngineInterface.
type Engine struct{}

func (e *Engine) Start(fuel int) (bool, error) {
	if fuel <= 0 {
		return false, ErrStall
	}
	return true, nil
}

// Joiner implements Variadic.
type Joiner struct{}

var _ Variadic = Joiner{}

func (Joiner) Join(sep string, parts ...string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

func (Joiner) Skip(n int, s string) bool {
	return n > len(s)
}
