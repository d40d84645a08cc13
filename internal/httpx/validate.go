package httpx

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerMu sync.Mutex

// RegisterEnum adds a binding tag that accepts exactly the given values,
// e.g. RegisterEnum("role", "CONSUMER", "ADMIN").
func RegisterEnum(tag string, values ...string) error {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return RegisterCheck(tag, func(s string) bool {
		_, ok := allowed[s]
		return ok
	})
}

// RegisterCheck adds a binding tag backed by a predicate on the field's
// string value.
func RegisterCheck(tag string, ok func(string) bool) error {
	return register(tag, func(fl validator.FieldLevel) bool {
		return ok(fl.Field().String())
	})
}

func register(tag string, fn validator.Func) error {
	registerMu.Lock()
	defer registerMu.Unlock()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation(tag, fn)
}
