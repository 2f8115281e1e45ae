package domain

import (
	"regexp"
	"strings"
	"time"
)

// Persona is a public-figure identity the chat impersonates. Each persona
// owns a scoped corpus of chunks; retrieval never crosses persona boundaries.
type Persona struct {
	ID          string
	Slug        string
	Name        string
	Description string
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate checks required fields and slug format.
func (p *Persona) Validate() error {
	if strings.TrimSpace(p.Slug) == "" {
		return ErrMissingSlug
	}
	if !slugPattern.MatchString(p.Slug) {
		return ErrInvalidSlug
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrMissingName
	}
	return nil
}
