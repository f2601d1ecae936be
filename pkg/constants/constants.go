package constants

// Context keys set by middleware and read by handlers.
const (
	CtxUserID    = "user_id"
	CtxUserRole  = "user_role"
	CtxRequestID = "request_id"
)

// Redis key prefixes.
const (
	PresenceKeyPrefix  = "presence:"
	PushTokenKeyPrefix = "push_tokens:"
	EventChannelPrefix = "events:"
	ScheduleKey        = "scheduler:jobs"
	SchedulePayloadKey = "scheduler:payloads"
)

// Scheduled job names.
const (
	JobRingingTimeout  = "call.ringing_timeout"
	JobDurationTimeout = "call.duration_timeout"
)

// Limits.
const (
	MaxMessageLength      = 4000
	MaxAttachmentSize     = 25 << 20
	MaxExpertsPerConsult  = 8
	PresenceTTLSeconds    = 90
)
