package parser

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/hyperjump/crec/internal/models"
)

// recordValidator checks speech records against their struct tags and reports the
// first failing field by its JSON name.
type recordValidator struct {
	v     *validator.Validate
	trans ut.Translator
}

func newRecordValidator() *recordValidator {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		if tag == "" || tag == "-" {
			return fld.Name
		}
		return tag
	})
	_ = en_translations.RegisterDefaultTranslations(v, trans)
	return &recordValidator{v: v, trans: trans}
}

func (rv *recordValidator) validate(rec *models.SpeechRecord) error {
	err := rv.v.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &models.ValidationError{ID: rec.ID, Err: err}
	}
	fe := verrs[0]
	reason := errors.New(fe.Translate(rv.trans))
	if fe.Tag() == "required" {
		reason = fmt.Errorf("%w: %s", models.ErrMissingField, fe.Translate(rv.trans))
	}
	return &models.ValidationError{ID: rec.ID, Field: fe.Field(), Err: reason}
}
