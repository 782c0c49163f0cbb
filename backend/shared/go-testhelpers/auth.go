package testhelpers

import (
	"time"

	"github.com/driverpool/mono-repo/backend/shared/go-middleware"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// CreateAdminJWT signs a short-lived admin token with the helper's key.
func (h *TestHelper) CreateAdminJWT(adminID uuid.UUID) string {
	return h.createJWT(adminID, utils.AdminRole)
}

// CreateRoleJWT signs a token with an arbitrary role, for negative tests.
func (h *TestHelper) CreateRoleJWT(userID uuid.UUID, role string) string {
	return h.createJWT(userID, role)
}

func (h *TestHelper) createJWT(userID uuid.UUID, role string) string {
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"iss":  middleware.TokenIssuer,
		"sub":  userID.String(),
		"iat":  now,
		"exp":  now + 15*60,
		"role": role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(h.PrivateKey)
	require.NoError(h.T, err, "Failed to sign test admin JWT")
	return signed
}
