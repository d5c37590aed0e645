package report

import (
	"errors"

	"github.com/mbarros/escuta/internal/composer"
)

// ErrConsentRequired signals a clinical synthesis attempt without
// recorded consent. No fallback applies; the caller must obtain consent
// and retry.
var ErrConsentRequired = errors.New("consent is required for clinical report synthesis")

// RequireConsent gates synthesis on the clinical routes. It must be
// checked before any prompt composition or gateway work begins.
func RequireConsent(route composer.Route, consent bool) error {
	if composer.ModuleFor(route) == composer.ModuleClinical && !consent {
		return ErrConsentRequired
	}
	return nil
}
