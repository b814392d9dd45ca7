package auth

const (
	ScopeOpenID    = "openid"
	ScopeProfile   = "profile"
	ScopeEmail     = "email"
	ScopeSurgeRead = "surge:read"
	ScopeSurgeRun  = "surge:run"
)

// AllScopes defines the full set of scopes requested by the docs page
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopeSurgeRead,
	ScopeSurgeRun,
}
