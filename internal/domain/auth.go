package domain

// Classification codes surfaced to callers. These are the only strings the
// auth boundary emits; crypto failures are deliberately not distinguished.
const (
	CodeMissingAuthHeaders       = "missing_auth_headers"
	CodeTimestampInvalid         = "timestamp_invalid"
	CodeParticipantNotRegistered = "participant_not_registered"
	CodeInvalidSignature         = "invalid_signature"
	CodeBudgetExhausted          = "privacy_budget_exhausted"
	CodeStorageUnavailable       = "storage_unavailable"
)

// AuthResult is the ephemeral outcome of one verification attempt.
type AuthResult struct {
	ParticipantID string
	Valid         bool
	Code          string
}

func Authenticated(participantID string) AuthResult {
	return AuthResult{ParticipantID: participantID, Valid: true}
}

func Rejected(code string) AuthResult {
	return AuthResult{Code: code}
}
