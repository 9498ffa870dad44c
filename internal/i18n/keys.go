// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeyInternalError = "common.internal_error"
	KeyRateLimited   = "common.rate_limited"

	// Authentication
	KeyAuthRequired      = "auth.required"
	KeyAuthInvalidToken  = "auth.invalid_token"
	KeyAuthTokenExpired  = "auth.token_expired"
	KeyAdminAccessDenied = "admin.access_denied"

	// Reports
	KeyReportNotFound         = "report.not_found"
	KeyReportCategoryNotFound = "report.category_not_found"
	KeyReportNotReporter      = "report.not_reporter"
	KeyReportInvalidState     = "report.invalid_state"
	KeyReportConflict         = "report.conflict"
	KeyReportDuplicate        = "report.duplicate"
	KeyReportIDUnavailable    = "report.id_unavailable"

	// Category cache
	KeyCacheReloaded     = "cache.reloaded"
	KeyCacheReloadFailed = "cache.reload_failed"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationTooLong  = "validation.too_long"
)
