package middleware

type contextKey string

// StartTimeKey stores the time the request was received.
const StartTimeKey contextKey = "start_time"
