package common

// SessionCookieName is the cookie that carries the session token for browser clients.
const SessionCookieName = "session_token"

// BearerPrefix is the Authorization header scheme accepted for API clients.
const BearerPrefix = "Bearer "
