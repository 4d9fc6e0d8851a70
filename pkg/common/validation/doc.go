// Package validation provides common validation utilities for configuration
// parameters across the gopulse library.
//
// This package offers reusable validation functions that help ensure
// consistent error messages and reduce boilerplate code in constructors.
// Every helper takes the reporting module and field names and returns a
// structured errors.ValidationError, so refusals read uniformly across
// subsystems:
//
//	smooth: invalid maxBurstSeconds=0 (must be positive) - value must be greater than 0
//	dispatch: invalid workers=0 (must be positive) - value must be greater than 0
//
// Checks with constraints beyond these primitives (finite rates, cron
// expressions, cross-option pairing) live with their constructors and
// build their ValidationError directly.
package validation
