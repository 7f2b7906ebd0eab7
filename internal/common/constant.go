// Package common contains shared constants and error kinds used across
// postfeed server components.
package common

// AuthCookieName is the cookie carrying the session token for browser clients.
const AuthCookieName = "jwt"

// LoggedOutCookieValue replaces the session token on logout.
const LoggedOutCookieValue = "loggedout"
