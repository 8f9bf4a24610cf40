package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/pt_BR"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	pt_translations "github.com/go-playground/validator/v10/translations/pt_BR"
)

// requestValidator checks request DTOs and renders field errors in the
// configured language.
type requestValidator struct {
	v     *govalidator.Validate
	trans ut.Translator
}

func newRequestValidator(lang string) (*requestValidator, error) {
	v := govalidator.New(govalidator.WithRequiredStructEnabled())
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, pt_BR.New())

	var (
		trans ut.Translator
		err   error
	)
	if strings.HasPrefix(strings.ToLower(lang), "pt") {
		trans, _ = uni.GetTranslator("pt_BR")
		err = pt_translations.RegisterDefaultTranslations(v, trans)
	} else {
		trans, _ = uni.GetTranslator("en")
		err = en_translations.RegisterDefaultTranslations(v, trans)
	}
	if err != nil {
		return nil, err
	}
	return &requestValidator{v: v, trans: trans}, nil
}

// check validates dst and returns the translated messages joined by "; ",
// or "" when dst is valid.
func (rv *requestValidator) check(dst any) string {
	err := rv.v.Struct(dst)
	if err == nil {
		return ""
	}
	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fe.Translate(rv.trans))
	}
	return strings.Join(msgs, "; ")
}
