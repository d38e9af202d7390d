// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("business_type", validateBusinessType)
		_ = v.RegisterValidation("plan", validatePlan)
		_ = v.RegisterValidation("purchase_kind", validatePurchaseKind)
		_ = v.RegisterValidation("intent_type", validateIntentType)
		_ = v.RegisterValidation("content_type", validateContentType)
		_ = v.RegisterValidation("channel", validateChannel)
	}
}

func validateBusinessType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "ecom", "local_service", "b2b_service", "other":
		return true
	}
	return false
}

func validatePlan(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "snapshot", "ongoing":
		return true
	}
	return false
}

func validatePurchaseKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "snapshot", "ongoing":
		return true
	}
	return false
}

func validateIntentType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "emergency", "high_ticket", "replenishment", "informational", "transactional":
		return true
	}
	return false
}

func validateContentType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "client_site", "competitor_site":
		return true
	}
	return false
}

func validateChannel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "self_serve", "admin", "scheduled":
		return true
	}
	return false
}
