// Package session issues opaque session tokens and manages the server-side
// session records they point to.
package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PaulFidika/authcore/roles"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidSession is returned when a payload fails validation. Nothing is
// written in that case.
var ErrInvalidSession = errors.New("session: invalid session payload")

// UserSession is the only payload persisted server-side.
type UserSession struct {
	ID   string     `json:"id" validate:"required"`
	Role roles.Role `json:"role" validate:"required,role"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return roles.Role(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks u against the session schema.
func (u UserSession) Validate() error {
	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return nil
}

func encode(u UserSession) ([]byte, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(u)
}

func decode(b []byte) (UserSession, error) {
	var u UserSession
	if err := json.Unmarshal(b, &u); err != nil {
		return UserSession{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if err := u.Validate(); err != nil {
		return UserSession{}, err
	}
	return u, nil
}
