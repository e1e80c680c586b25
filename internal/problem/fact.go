package problem

import "fmt"

// ValueFact is a data-flow fact naming one IR value by its stable id —
// the shape every concrete IFDS/IDE problem in this package uses as its
// finite domain element, since "is this value tainted/uninitialized/
// typed-as-X at this program point" is exactly a value-id-keyed fact.
type ValueFact struct {
	ValueID string
	Tag     string // disambiguates multiple fact families sharing one domain, e.g. "uninit", "tainted"
}

// Key implements Fact.
func (f ValueFact) Key() string { return f.Tag + "::" + f.ValueID }

func (f ValueFact) String() string { return fmt.Sprintf("%s(%s)", f.Tag, f.ValueID) }
