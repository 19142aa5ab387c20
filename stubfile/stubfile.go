// Package stubfile defines the format-agnostic stub-script registry: a
// stub script describes one or more named Thumb code stubs, each a
// sequence of operations applied to a thumbwriter.Writer to synthesize
// machine code. Concrete formats (e.g. stubfile/thumbyaml) register
// themselves here; callers pick a format by name and parse a file without
// needing to import the format package directly.
package stubfile

import (
	"io/ioutil"

	"github.com/geek1011/thumbforge/thumbwriter"
	"github.com/pkg/errors"
)

// Log is used to log debugging messages. It is a no-op by default;
// callers that want tracing replace it (see thumbforge-assemble).
var Log = func(format string, a ...interface{}) {}

// StubSet represents a parsed stub script: zero or more named stubs, each
// emittable onto a thumbwriter.Writer.
type StubSet interface {
	// Validate checks the stub set's internal consistency without emitting
	// anything; which checks are made is up to the format.
	Validate() error
	// ApplyTo emits every enabled stub in the set onto w. The order in
	// which stubs are emitted is up to the format.
	ApplyTo(w *thumbwriter.Writer) error
}

var formats = map[string]func([]byte) (StubSet, error){}

// RegisterFormat registers a stub-script format under name. It panics if
// name is already registered, the same way duplicate format registration
// is treated as a programming error rather than a runtime condition.
func RegisterFormat(name string, f func([]byte) (StubSet, error)) {
	if _, ok := formats[name]; ok {
		panic("stubfile: attempt to register duplicate format " + name)
	}
	formats[name] = f
}

// GetFormat looks up a previously registered format by name.
func GetFormat(name string) (func([]byte) (StubSet, error), bool) {
	f, ok := formats[name]
	return f, ok
}

// GetFormats lists every registered format name.
func GetFormats() []string {
	f := []string{}
	for n := range formats {
		f = append(f, n)
	}
	return f
}

// ReadFromFile reads and parses a stub script from filename using the named
// format. It does not call Validate; callers that need eager validation
// should call it themselves.
func ReadFromFile(format, filename string) (StubSet, error) {
	f, ok := GetFormat(format)
	if !ok {
		return nil, errors.Errorf("no stub script format called '%s'", format)
	}

	buf, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not open stub script")
	}

	ss, err := f(buf)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse stub script")
	}

	return ss, nil
}
