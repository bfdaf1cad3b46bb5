package units

type selectorKind int

const (
	selectDefault selectorKind = iota
	selectUnit
	selectID
	selectText
)

// Selector names a conversion target. The zero value selects the category
// default unit.
type Selector struct {
	kind selectorKind
	unit Unit
	id   int
	text string
}

// To selects a unit handle.
func To(u Unit) Selector {
	return Selector{kind: selectUnit, unit: u}
}

// ByID selects a unit by its identifier within the category.
func ByID(id int) Selector {
	return Selector{kind: selectID, id: id}
}

// BySymbol selects a unit by exact synonym match. An empty string selects
// the default unit.
func BySymbol(s string) Selector {
	if s == "" {
		return Selector{}
	}
	return Selector{kind: selectText, text: s}
}

// IsDefault reports whether the selector picks the default unit.
func (s Selector) IsDefault() bool {
	return s.kind == selectDefault
}
