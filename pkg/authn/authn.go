package authn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is what the session collaborator hands the workflow core: a user
// id and a coarse role. The core trusts it and performs only ownership and
// assignment checks itself.
type Identity struct {
	UserID string
	Role   string
}

// AuthenticateBearer resolves an Authorization header to an active user via
// the hashed-token credential table.
func AuthenticateBearer(ctx context.Context, db *pgxpool.Pool, authorization string) (*Identity, error) {
	token, ok := parseBearerToken(authorization)
	if !ok {
		return nil, ErrUnauthorized
	}
	tokenHash := HashToken(token)
	var out Identity
	err := db.QueryRow(ctx, `
SELECT u.user_id,u.role
FROM user_credentials uc
JOIN users u ON u.user_id=uc.user_id
WHERE uc.token_hash=$1
  AND uc.revoked_at IS NULL
  AND u.status='ACTIVE'
`, tokenHash).Scan(&out.UserID, &out.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return &out, nil
}

func parseBearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
