// Package categorypkg provides account category related functionality for apps.
package categorypkg

import (
	"github.com/go-playground/validator/v10"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// ValidCategory validates whether the category is supported.
var ValidCategory validator.Func = func(fl validator.FieldLevel) bool {
	if c, ok := fl.Field().Interface().(string); ok {
		return domain.Category(c).Valid()
	}

	return false
}
