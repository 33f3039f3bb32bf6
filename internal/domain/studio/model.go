package studio

import (
	"errors"
	"strings"
)

// Domain errors
var (
	ErrEmptyName = errors.New("studio name cannot be empty")
	ErrNotFound  = errors.New("studio not found")
)

// Studio is a gym location. Members, intervals and ledger entries carry
// a studio ID snapshot so history survives transfers between studios.
type Studio struct {
	ID   string
	Name string
	Code string // short label used in reports, e.g. "GNZ"
}

// Validate checks if the Studio has valid data.
// PRE: Studio struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (s *Studio) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
