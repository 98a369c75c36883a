package hdl

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/util"
)

// Matcher selects connectors by name for bundle bulk operations.
type Matcher interface {
	Match(name string) bool
}

// MatchFunc adapts a predicate to a Matcher.
type MatchFunc func(name string) bool

func (f MatchFunc) Match(name string) bool {
	return f(name)
}

// All matches every connector.
func All() Matcher {
	return MatchFunc(func(string) bool { return true })
}

// Pattern returns a Matcher accepting names that match expr as a whole.
func Pattern(expr string) (Matcher, error) {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, errors.Wrapf(ErrConfiguration, "invalid connector pattern %q: %s", expr, err)
	}
	return MatchFunc(re.MatchString), nil
}

// MustPattern is like Pattern but panics on an invalid expression.
func MustPattern(expr string) Matcher {
	m, err := Pattern(expr)
	if err != nil {
		panic(err)
	}
	return m
}

// Bundle is an insertion-ordered, name-keyed collection of connectors. The insertion
// order is the declaration order of the generated text.
type Bundle struct {
	entries *util.OrderedMap[string, *Connector]
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{entries: util.NewOrderedMap[string, *Connector]()}
}

// Add appends a connector. Names are unique within a bundle.
func (b *Bundle) Add(c *Connector) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !b.entries.Insert(c.Name, c) {
		return errors.Wrapf(ErrConfiguration, "connector %q already defined", c.Name)
	}
	return nil
}

// Lookup returns the connector with the given name.
func (b *Bundle) Lookup(name string) (*Connector, bool) {
	return b.entries.Lookup(name)
}

// Get returns the connector with the given name or an ErrNotFound error.
func (b *Bundle) Get(name string) (*Connector, error) {
	c, ok := b.entries.Lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "connector %q", name)
	}
	return c, nil
}

// Len returns the number of connectors.
func (b *Bundle) Len() int {
	return b.entries.Len()
}

// Names returns the connector names in insertion order.
func (b *Bundle) Names() []string {
	return b.entries.Keys()
}

// Connectors returns the connectors in insertion order.
func (b *Bundle) Connectors() []*Connector {
	return b.entries.Values()
}

// Rename moves the connector stored under from to to and renames the connector itself.
func (b *Bundle) Rename(from, to string) error {
	c, ok := b.entries.Lookup(from)
	if !ok {
		return errors.Wrapf(ErrNotFound, "connector %q", from)
	}
	if _, exists := b.entries.Lookup(to); exists {
		return errors.Wrapf(ErrConfiguration, "cannot rename %q: connector %q already defined", from, to)
	}
	b.entries.Rename(from, to)
	c.Name = to
	return nil
}

// Merge appends the connectors of other that are not yet present, in their order.
func (b *Bundle) Merge(other *Bundle) {
	for _, c := range other.Connectors() {
		b.entries.Insert(c.Name, c)
	}
}

// ConnectMatching drives every matching connector from the connector named target.
// The target itself is never connected to itself.
func (b *Bundle) ConnectMatching(m Matcher, target string) error {
	driver, err := b.Get(target)
	if err != nil {
		return err
	}
	for _, c := range b.Connectors() {
		if c != driver && m.Match(c.Name) {
			c.Connect = driver
		}
	}
	return nil
}

// InitMatching sets the initial value of every matching connector and returns how many
// were changed.
func (b *Bundle) InitMatching(m Matcher, value string) int {
	n := 0
	for _, c := range b.Connectors() {
		if m.Match(c.Name) {
			c.InitialValue = value
			n++
		}
	}
	return n
}

// AssignmentsMatching renders the continuous assignments of the matching connectors.
// Matching connectors without a driver contribute nothing.
func (b *Bundle) AssignmentsMatching(m Matcher) []string {
	statements := []string{}
	for _, c := range b.Connectors() {
		if c.Connect == nil || !m.Match(c.Name) {
			continue
		}
		s, _ := c.Assignment()
		statements = append(statements, s)
	}
	return statements
}

// Initializations renders the initial value assignments of all connectors.
func (b *Bundle) Initializations() []string {
	statements := []string{}
	for _, c := range b.Connectors() {
		if s := c.Initialization(); s != "" {
			statements = append(statements, s)
		}
	}
	return statements
}

// Declarations renders all reg declarations, a blank line, then all wire declarations,
// each group in insertion order.
func (b *Bundle) Declarations() (string, error) {
	regs, err := b.declarationsOf(Reg)
	if err != nil {
		return "", err
	}
	wires, err := b.declarationsOf(Wire)
	if err != nil {
		return "", err
	}
	return strings.Join(regs, "\n") + "\n\n" + strings.Join(wires, "\n") + "\n", nil
}

func (b *Bundle) declarationsOf(class Class) ([]string, error) {
	lines := []string{}
	for _, c := range b.Connectors() {
		if c.Class != class {
			continue
		}
		d, err := c.Declaration()
		if err != nil {
			return nil, err
		}
		lines = append(lines, d)
	}
	return lines, nil
}
