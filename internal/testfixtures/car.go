package testfixtures

// Car implements Countable.
type Car struct{}

func (c *Car) Count() int {
	return 1
}

// CarInterface is a test fixture with methods that return nothing.
type CarInterface interface {
	Horsepower() int
	Ride()
	Park()
}

// Shape is embedded by Square.
type Shape struct{}

func (s *Shape) Kind() string {
	return "shape"
}

// Square is a named struct with an embedded parent and an embedded interface.
type Square struct {
	Shape
	Countable

	SideLength float64
}

// NewSquare returns a square with the given side.
func NewSquare(sideLength float64) *Square {
	return &Square{SideLength: sideLength, Countable: &Car{}}
}

func (s *Square) Area() float64 {
	return s.SideLength * 2
}

func (s Square) Side() float64 {
	return s.SideLength
}
