package hdl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Class is the declaration class of a signal.
type Class string

const (
	Input  Class = "input"
	Output Class = "output"
	Inout  Class = "inout"
	Reg    Class = "reg"
	Wire   Class = "wire"
)

func (c Class) valid() bool {
	switch c {
	case Input, Output, Inout, Reg, Wire:
		return true
	}
	return false
}

// Signedness of a vector signal. Unspecified renders no keyword.
type Signedness string

const (
	Unspecified Signedness = ""
	Signed      Signedness = "signed"
	Unsigned    Signedness = "unsigned"
)

// DefaultIOFormat is the format token used when a connector is read from or written to
// an exchange file.
const DefaultIOFormat = "%d"

// AssignKind selects the procedural assignment operator.
type AssignKind int

const (
	// Blocking renders `=`.
	Blocking AssignKind = iota
	// NonBlocking renders `<=`.
	NonBlocking
)

func (k AssignKind) operator() string {
	if k == NonBlocking {
		return "<="
	}
	return "="
}

// Connector models one HDL signal.
//
// LeftLimit and RightLimit hold either integer literals or parameter expressions.
// Connect names the net this signal is driven from; it is a lookup relation, the
// connector does not own its driver.
type Connector struct {
	Name         string
	Class        Class
	Signedness   Signedness
	LeftLimit    string
	RightLimit   string
	InitialValue string
	Connect      *Connector
	IOFormat     string
}

// NewScalar returns a one bit connector.
func NewScalar(name string, class Class) *Connector {
	return &Connector{Name: name, Class: class, LeftLimit: "0", RightLimit: "0"}
}

// NewVector returns a connector with bit range [width-1:0].
func NewVector(name string, class Class, width int) *Connector {
	return &Connector{
		Name:       name,
		Class:      class,
		LeftLimit:  strconv.Itoa(width - 1),
		RightLimit: "0",
	}
}

// Validate checks the construction arguments of the connector.
func (c *Connector) Validate() error {
	if c.Name == "" {
		return errors.Wrap(ErrConfiguration, "connector without a name")
	}
	if !c.Class.valid() {
		return errors.Wrapf(ErrConfiguration, "connector %q: unknown class %q", c.Name, c.Class)
	}
	switch c.Signedness {
	case Unspecified, Signed, Unsigned:
	default:
		return errors.Wrapf(ErrConfiguration, "connector %q: unknown signedness %q", c.Name, c.Signedness)
	}
	if strings.TrimSpace(c.LeftLimit) == "" || strings.TrimSpace(c.RightLimit) == "" {
		return errors.Wrapf(ErrConfiguration, "connector %q: missing bit range limit", c.Name)
	}
	return nil
}

// Format returns the I/O format token of the connector.
func (c *Connector) Format() string {
	if c.IOFormat == "" {
		return DefaultIOFormat
	}
	return c.IOFormat
}

// Width is the bit width of a connector. Expr is set instead of Bits when either
// limit is a parameter expression.
type Width struct {
	Bits int
	Expr string
}

// Numeric reports whether the width is a known integer.
func (w Width) Numeric() bool {
	return w.Expr == ""
}

func (w Width) String() string {
	if w.Numeric() {
		return strconv.Itoa(w.Bits)
	}
	return w.Expr
}

// Width computes the width from the bit range. Reversed numeric ranges are accepted
// as they are.
func (c *Connector) Width() (Width, error) {
	ll := strings.TrimSpace(c.LeftLimit)
	rl := strings.TrimSpace(c.RightLimit)
	if ll == "" || rl == "" {
		return Width{}, errors.Wrapf(ErrConfiguration, "connector %q: missing bit range limit", c.Name)
	}
	left, lerr := strconv.Atoi(ll)
	right, rerr := strconv.Atoi(rl)
	if lerr == nil && rerr == nil {
		return Width{Bits: left - right + 1}, nil
	}
	return Width{Expr: fmt.Sprintf("(%s-%s+1)", ll, rl)}, nil
}

// IsScalar reports whether the connector is exactly one bit wide.
func (c *Connector) IsScalar() (bool, error) {
	w, err := c.Width()
	if err != nil {
		return false, err
	}
	return w.Numeric() && w.Bits == 1, nil
}

// Range renders the bit range, e.g. "[7:0]".
func (c *Connector) Range() string {
	return fmt.Sprintf("[%s:%s]", strings.TrimSpace(c.LeftLimit), strings.TrimSpace(c.RightLimit))
}

// Declaration renders the declaration statement of the connector.
func (c *Connector) Declaration() (string, error) {
	return c.DeclarationAs(c.Class, c.Name)
}

// DeclarationAs renders a declaration with the bit range and signedness of the
// connector under a different class and name, e.g. for buffer variables.
func (c *Connector) DeclarationAs(class Class, name string) (string, error) {
	scalar, err := c.IsScalar()
	if err != nil {
		return "", err
	}
	switch {
	case scalar:
		return fmt.Sprintf("%s %s;", class, name), nil
	case c.Signedness != Unspecified:
		return fmt.Sprintf("%s %s %s %s;", class, c.Signedness, c.Range(), name), nil
	default:
		return fmt.Sprintf("%s %s %s;", class, c.Range(), name), nil
	}
}

// Assignment renders a continuous assignment from the driving connector.
func (c *Connector) Assignment() (string, error) {
	if c.Connect == nil {
		return "", errors.Wrapf(ErrUnboundConnector, "connector %q", c.Name)
	}
	return fmt.Sprintf("assign %s = %s;", c.Name, c.Connect.Name), nil
}

// ProceduralAssign renders a procedural assignment from the driving connector. A
// non-empty delay is rendered as an intra-assignment delay on the value. Blocking
// renders "=" and NonBlocking "<=", as in Verilog.
func (c *Connector) ProceduralAssign(kind AssignKind, delay string) (string, error) {
	if c.Connect == nil {
		return "", errors.Wrapf(ErrUnboundConnector, "connector %q", c.Name)
	}
	value := c.Connect.Name
	if delay != "" {
		value = fmt.Sprintf("#%s %s", delay, value)
	}
	return fmt.Sprintf("%s %s %s;", c.Name, kind.operator(), value), nil
}

// Initialization renders the assignment of the initial value, or "" if there is none.
func (c *Connector) Initialization() string {
	if c.InitialValue == "" {
		return ""
	}
	return fmt.Sprintf("%s = %s;", c.Name, c.InitialValue)
}
