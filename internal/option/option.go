package option

// Option is a name/value pair passed to the various functions
// that accept variadic options.
type Option interface {
	Name() string
	Value() interface{}
}

type option struct {
	name  string
	value interface{}
}

func New(n string, v interface{}) Option {
	return &option{
		name:  n,
		value: v,
	}
}

func (o option) Name() string       { return o.name }
func (o option) Value() interface{} { return o.value }

// Lookup returns the value of the last option named n, or def when no
// such option was given or its value is not a T.
func Lookup[T any](options []Option, n string, def T) T {
	v := def
	for _, o := range options {
		if o.Name() != n {
			continue
		}
		if t, ok := o.Value().(T); ok {
			v = t
		}
	}
	return v
}

// Collect returns the values of every option named n, in order.
func Collect[T any](options []Option, n string) []T {
	var list []T
	for _, o := range options {
		if o.Name() != n {
			continue
		}
		if t, ok := o.Value().(T); ok {
			list = append(list, t)
		}
	}
	return list
}
