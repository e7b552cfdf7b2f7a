package alert

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/attendance/core"
)

var (
	typeTag  = "alerttype"
	typeText = "invalid alert type"
)

func init() {
	_ = core.Validate.RegisterValidation(typeTag, typeValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, typeTag, typeText)
}

func typeValidation(fl validator.FieldLevel) bool {
	return Type(fl.Field().String()).Valid()
}
