package diff

import (
	"strings"

	"github.com/schemalex/pgdelta/internal/errors"
	"golang.org/x/text/encoding/ianaindex"
)

func encode(b []byte, charset string) ([]byte, error) {
	switch strings.ToUpper(charset) {
	case "", "UTF-8", "UTF8":
		return b, nil
	}

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, errors.Wrapf(err, `unknown charset '%s'`, charset)
	}
	if enc == nil {
		return nil, errors.Errorf(`unsupported charset '%s'`, charset)
	}

	out, err := enc.NewEncoder().Bytes(b)
	if err != nil {
		return nil, errors.Wrapf(err, `failed to encode to %s`, charset)
	}
	return out, nil
}
