package sentiment

type Label int

const (
	Negative Label = iota
	Positive
)

// LabelFromClass maps a raw class id onto a Label: 0 is Negative, anything
// else is Positive.
func LabelFromClass(class int) Label {
	if class == 0 {
		return Negative
	}
	return Positive
}

func (l Label) String() string {
	if l == Negative {
		return "Negative"
	}
	return "Positive"
}

// Color is the card background used when rendering the label.
func (l Label) Color() string {
	if l == Negative {
		return "red"
	}
	return "green"
}
