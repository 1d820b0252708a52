package pgdelta

import "github.com/schemalex/pgdelta/internal/option"

// Option is a generic interface for objects that passes
// optional parameters to the various functions in this module
type Option = option.Option
