package handler

import (
	"github.com/go-playground/validator/v10"
)

// Validator adapts go-playground/validator to Echo's Validator
// interface so handlers can call c.Validate on bound request bodies.
type Validator struct {
	validate *validator.Validate
}

// NewValidator returns a Validator ready to be installed on the Echo
// instance.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate checks the struct tags of i and returns the first
// validation failure, if any.
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
