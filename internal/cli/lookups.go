package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/ftsq"
	"github.com/roach88/ftsq/internal/lookup"
	"github.com/roach88/ftsq/internal/schema"
)

// datePartLookups compare integers whatever the field kind.
var datePartLookups = map[string]bool{
	lookup.Year:   true,
	lookup.Month:  true,
	lookup.Day:    true,
	lookup.Hour:   true,
	lookup.Minute: true,
}

// parseLookups turns key=value arguments into lookups. Values of numeric
// fields and date parts are converted; unknown fields are left for the
// index to reject.
func parseLookups(s *ftsq.Schema, args []string) (ftsq.Lookups, error) {
	kw := ftsq.Lookups{}
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid argument %q: expected key=value", arg))
		}
		v, err := typedValue(s, key, raw)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid value for %s", key), err)
		}
		kw[key] = v
	}
	return kw, nil
}

func typedValue(s *ftsq.Schema, key, raw string) (any, error) {
	parts := strings.Split(key, lookup.Separator)
	for _, name := range parts[1:] {
		if datePartLookups[name] {
			return strconv.ParseInt(raw, 10, 64)
		}
	}
	f, ok := s.Field(parts[0])
	if !ok {
		return raw, nil
	}
	switch f.Kind {
	case schema.KindInteger:
		return strconv.ParseInt(raw, 10, 64)
	case schema.KindReal:
		return strconv.ParseFloat(raw, 64)
	case schema.KindBlob:
		return []byte(raw), nil
	}
	return raw, nil
}
