// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package block

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidNode is returned when a block document is structurally malformed.
var ErrInvalidNode = errors.New("invalid block node")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the tree rooted at n is structurally well formed: every
// node has a type, an attribute map, a data.value object and a children array.
// Node semantics are never checked, so unknown block types pass.
func Validate(n *Node) error {
	return validateAt(n, "$")
}

func validateAt(n *Node, path string) error {
	if n == nil {
		return fmt.Errorf("%w: %s is null", ErrInvalidNode, path)
	}
	if err := validate.Struct(n); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s.%s is required", ErrInvalidNode, path, jsonField(verrs[0].Namespace()))
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidNode, path, err)
	}
	for i, child := range n.Children {
		if err := validateAt(child, fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// jsonField maps a validator namespace such as "Node.Data.Value" to the JSON
// field path "data.value".
func jsonField(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, ".")
}
