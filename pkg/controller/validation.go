package controller

import (
	"errors"

	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// Validator is implemented by request bodies whose rules go beyond binding tags.
type Validator interface {
	Validate() error
}

// Bind decodes the request body into dto, checks its binding tags and then calls
// Validate when dto implements Validator. A plain error from Validate becomes a 400.
func Bind(c router.Context, dto interface{}) error {
	if err := c.Bind(dto); err != nil {
		return err
	}
	return validate(dto)
}

// BindOptional is Bind for actions whose body may be omitted; dto keeps its zero value then.
func BindOptional(c router.Context, dto interface{}) error {
	if err := c.Bind(dto); err != nil && !errors.Is(err, router.ErrEmptyBody) {
		return err
	}
	return validate(dto)
}

func validate(dto interface{}) error {
	v, ok := dto.(Validator)
	if !ok {
		return nil
	}
	err := v.Validate()
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return NewValidationError(err.Error(), nil, err)
}
