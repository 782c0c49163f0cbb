package utils

const (
	OrganizationName                      = "DriverPool"
	CORSLowSecurityAllowedOriginLocalhost = "http://localhost:*"

	AdminRole = "admin"

	// Invite tokens: 32 random bytes, 256 bits of entropy.
	InviteTokenBytes = 32
)
