package attendance

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/attendance/core"
)

var (
	statusTag  = "attstatus"
	statusText = "status must be one of present, absent, late, excused"
)

func init() {
	_ = core.Validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, statusTag, statusText)
}

// statusValidation accepts empty strings; combine with `required` when needed.
func statusValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := ParseStatus(s)
	return err == nil
}
