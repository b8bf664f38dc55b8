package oauthkit

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// Validator decodes and validates a raw provider payload.
type Validator[T any] func(raw []byte) (T, error)

var validate = validator.New(validator.WithRequiredStructEnabled())

// JSONSchema returns a Validator that decodes raw into T and applies T's
// `validate` struct tags.
func JSONSchema[T any]() Validator[T] {
	return func(raw []byte) (T, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return v, err
		}
		if err := validate.Struct(v); err != nil {
			return v, err
		}
		return v, nil
	}
}
