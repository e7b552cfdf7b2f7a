package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindQuery binds query params into dest and validates it.
// Malformed params are reported as a validation error rather than echo's generic 400.
func bindQuery(ctx echo.Context, dest interface{}) error {
	if err := ctx.Bind(dest); err != nil {
		return core.NewValidationError(errors.Wrap(err, "binding query params"))
	}
	return core.Validate.Struct(dest)
}

// queryDate parses the named query param, returning a zero Date when absent.
func queryDate(ctx echo.Context, name string) (core.Date, error) {
	raw := strings.TrimSpace(ctx.QueryParam(name))
	if raw == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, core.NewValidationError(err, core.FieldError{Field: name, Error: err.Error()})
	}
	return d, nil
}

func queryInt(ctx echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(ctx.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be an integer"})
	}
	return n, nil
}

// queryBool returns nil when the param is absent.
func queryBool(ctx echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(ctx.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be a boolean"})
	}
	return &b, nil
}
