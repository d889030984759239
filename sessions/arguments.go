package sessions

import (
	"fmt"
	"regexp"
	"strconv"

	"xdao.co/zkview/model"
)

var digits = regexp.MustCompile(`^\d*$`)

// NewArguments pairs user supplied values with the manifest's argument
// types. Every type needs a value, and every value must be a positive
// decimal integer.
func NewArguments(types, values []string) ([]model.Argument, error) {
	if len(values) != len(types) {
		return nil, model.NewError(model.ErrValidation,
			fmt.Sprintf("expected %d arguments, got %d", len(types), len(values)))
	}
	out := make([]model.Argument, len(types))
	for i, t := range types {
		v := values[i]
		if !validValue(v) {
			return nil, model.NewError(model.ErrValidation,
				fmt.Sprintf("argument %d (%s): %q is not a positive integer", i+1, t, v))
		}
		n, _ := strconv.ParseUint(v, 10, 64)
		out[i] = model.Argument{Value: strconv.FormatUint(n, 10), ArgType: t}
	}
	return out, nil
}

func validValue(v string) bool {
	if v == "" || !digits.MatchString(v) {
		return false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	return err == nil && n > 0
}
