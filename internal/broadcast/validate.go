// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package broadcast

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a Session or Message against its field rules.
func Validate(doc any) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("invalid broadcast document: %w", err)
	}
	return nil
}
