package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kendall-kelly/appraisal-orders-api/models"
)

// NewValidator returns a validator that reports json field names and knows the order enums
func NewValidator(tagName string) *validator.Validate {
	v := validator.New()
	if tagName != "" {
		v.SetTagName(tagName)
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		return models.OrderStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("order_priority", func(fl validator.FieldLevel) bool {
		return models.OrderPriority(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("order_type", func(fl validator.FieldLevel) bool {
		return models.OrderType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("property_type", func(fl validator.FieldLevel) bool {
		return models.PropertyType(fl.Field().String()).Valid()
	})
	return v
}

// TranslateValidation turns validator.ValidationErrors into per-field messages
func TranslateValidation(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "body", Message: err.Error()}}
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out.add(fe.Field(), fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "order_status", "order_priority", "order_type", "property_type":
		return fmt.Sprintf("%q is not a valid value", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// orderRules mirrors the order fields that carry constraints
type orderRules struct {
	PropertyAddress      string  `json:"property_address" validate:"required,min=3"`
	PropertyCity         string  `json:"property_city" validate:"required,min=2"`
	PropertyState        string  `json:"property_state" validate:"required,len=2"`
	PropertyZip          string  `json:"property_zip" validate:"required,min=5"`
	PropertyType         string  `json:"property_type" validate:"required,property_type"`
	BorrowerName         string  `json:"borrower_name" validate:"required,min=3"`
	ClientID             string  `json:"client_id" validate:"required"`
	Status               string  `json:"status" validate:"required,order_status"`
	Priority             string  `json:"priority" validate:"required,order_priority"`
	OrderType            string  `json:"order_type" validate:"required,order_type"`
	BorrowerEmail        string  `json:"borrower_email" validate:"omitempty,email"`
	LoanOfficerEmail     string  `json:"loan_officer_email" validate:"omitempty,email"`
	ProcessorEmail       string  `json:"processor_email" validate:"omitempty,email"`
	PropertyContactEmail string  `json:"property_contact_email" validate:"omitempty,email"`
	FeeAmount            float64 `json:"fee_amount" validate:"gte=0"`
	TechFee              float64 `json:"tech_fee" validate:"gte=0"`
	LoanAmount           float64 `json:"loan_amount" validate:"gte=0"`
}

// quickEntryRules covers orders captured during a phone call or from an email; property details come later
type quickEntryRules struct {
	PropertyAddress string  `json:"property_address" validate:"required,min=3"`
	BorrowerName    string  `json:"borrower_name" validate:"required,min=3"`
	ClientID        string  `json:"client_id" validate:"required"`
	Status          string  `json:"status" validate:"required,order_status"`
	Priority        string  `json:"priority" validate:"required,order_priority"`
	OrderType       string  `json:"order_type" validate:"omitempty,order_type"`
	PropertyType    string  `json:"property_type" validate:"omitempty,property_type"`
	FeeAmount       float64 `json:"fee_amount" validate:"gte=0"`
	TechFee         float64 `json:"tech_fee" validate:"gte=0"`
}

// validateOrder checks field shapes. When createdAt is non-zero the due date must follow it.
func validateOrder(v *validator.Validate, o *models.Order, createdAt time.Time) ValidationErrors {
	if o.Source == models.SourceQuickEntry || o.Source == models.SourceEmail {
		var errs ValidationErrors
		if err := v.Struct(quickEntryRules{
			PropertyAddress: o.PropertyAddress,
			BorrowerName:    o.BorrowerName,
			ClientID:        o.ClientID,
			Status:          string(o.Status),
			Priority:        string(o.Priority),
			OrderType:       string(o.OrderType),
			PropertyType:    string(o.PropertyType),
			FeeAmount:       o.FeeAmount.InexactFloat64(),
			TechFee:         o.TechFee.InexactFloat64(),
		}); err != nil {
			errs = append(errs, TranslateValidation(err)...)
		}
		return errs
	}

	rules := orderRules{
		PropertyAddress:      o.PropertyAddress,
		PropertyCity:         o.PropertyCity,
		PropertyState:        o.PropertyState,
		PropertyZip:          o.PropertyZip,
		PropertyType:         string(o.PropertyType),
		BorrowerName:         o.BorrowerName,
		ClientID:             o.ClientID,
		Status:               string(o.Status),
		Priority:             string(o.Priority),
		OrderType:            string(o.OrderType),
		BorrowerEmail:        o.BorrowerEmail,
		LoanOfficerEmail:     o.LoanOfficerEmail,
		ProcessorEmail:       o.ProcessorEmail,
		PropertyContactEmail: o.PropertyContactEmail,
		FeeAmount:            o.FeeAmount.InexactFloat64(),
		TechFee:              o.TechFee.InexactFloat64(),
		LoanAmount:           o.LoanAmount.InexactFloat64(),
	}

	var errs ValidationErrors
	if err := v.Struct(rules); err != nil {
		errs = append(errs, TranslateValidation(err)...)
	}
	if !createdAt.IsZero() && o.DueDate != nil && !o.DueDate.After(createdAt) {
		errs.add("due_date", "must be in the future")
	}
	return errs
}
