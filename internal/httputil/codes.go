package httputil

// Machine-readable error codes returned alongside error messages so clients
// can branch without parsing message text.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeInternalError      = "internal_error"
	CodeTooManyRequests    = "too_many_requests"
	CodeCooldownActive     = "cooldown_active"

	// Auth
	CodeEmailRequired      = "email_required"
	CodePasswordRequired   = "password_required"
	CodePasswordTooShort   = "password_too_short"
	CodeInvalidEmailFormat = "invalid_email_format"
	CodeEmailAlreadyExists = "email_already_exists"
	CodeInvalidCredentials = "invalid_credentials"
	CodeNotAuthenticated   = "not_authenticated"
	CodeAdminRequired      = "admin_required"
	CodeInvalidResetToken  = "invalid_reset_token"

	// Tasks
	CodeTaskTextRequired = "task_text_required"
	CodeTaskIDRequired   = "task_id_required"
	CodeInvalidColumn    = "invalid_column"
	CodeInvalidPriority  = "invalid_priority"
	CodeInvalidDueDate   = "invalid_due_date"
	CodeNoFieldsToUpdate = "no_fields_to_update"
	CodeInvalidBatch     = "invalid_batch"
	CodeTaskNotFound     = "task_not_found"

	// Admin
	CodeUserNotFound     = "user_not_found"
	CodeInvalidUserID    = "invalid_user_id"
	CodeSelfModification = "self_modification_forbidden"
)
