package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/eventra-africa/eventra-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID      uuid.UUID
	OrganizerID *uuid.UUID
	Role        enums.ActorRole
	JTI         string
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	UserID      uuid.UUID       `json:"user_id"`
	OrganizerID *uuid.UUID      `json:"organizer_id,omitempty"`
	Role        enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
