package handlers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

var registerOnce sync.Once

// RegisterValidators installs the plan_type and payment_method binding tags
// on gin's validator. It is safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("handlers: gin validator is not go-playground/validator")
			return
		}
		if err = v.RegisterValidation("plan_type", validPlanType); err != nil {
			return
		}
		err = v.RegisterValidation("payment_method", validPaymentMethod)
	})
	return err
}

func validPlanType(fl validator.FieldLevel) bool {
	_, ok := domain.LookupPlan(domain.PlanType(strings.ToUpper(strings.TrimSpace(fl.Field().String()))))
	return ok
}

func validPaymentMethod(fl validator.FieldLevel) bool {
	return domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(fl.Field().String()))).Valid()
}

// bindingMessage turns a binding error into a short client message naming
// the first offending field.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid JSON body"
	}
	fe := verrs[0]
	field := jsonName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "plan_type":
		return field + " must be one of 3_MONTHS, 6_MONTHS, 1_YEAR"
	case "payment_method":
		return field + " must be BANK_TRANSFER or E_WALLET"
	case "email":
		return field + " must be an e-mail address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	}
	return field + " is invalid"
}

// jsonName converts a Go field name (PlanType) to its JSON key (plan_type).
func jsonName(goName string) string {
	var b strings.Builder
	for i, r := range goName {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
