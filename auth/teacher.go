package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/ieltsdesk/backend/logger"
	"github.com/ieltsdesk/backend/srvcerror"
	"golang.org/x/crypto/bcrypt"
)

// TeacherAuth authenticates the single teacher account and tracks its
// issued tokens.
type TeacherAuth struct {
	username  string
	bcryptPwd []byte
	jwtKey    []byte
	tokenTTL  time.Duration
	sessions  SessionStore
}

// NewTeacherAuth accepts either a bcrypt hash or a plaintext password, which
// is hashed here so it is not kept in memory.
func NewTeacherAuth(
	username string,
	password string,
	passwordBcrypt string,
	jwtKey []byte,
	tokenTTL time.Duration,
	sessions SessionStore,
) (*TeacherAuth, error) {
	var hash []byte
	if passwordBcrypt != "" {
		if _, err := bcrypt.Cost([]byte(passwordBcrypt)); err != nil {
			return nil, fmt.Errorf("invalid teacher bcrypt hash: %w", err)
		}
		hash = []byte(passwordBcrypt)
	} else {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash teacher password: %w", err)
		}
	}

	return &TeacherAuth{
		username:  username,
		bcryptPwd: hash,
		jwtKey:    jwtKey,
		tokenTTL:  tokenTTL,
		sessions:  sessions,
	}, nil
}

// Login returns a fresh token for valid credentials.
func (a *TeacherAuth) Login(ctx context.Context, username string, password string) (string, error) {
	userOk := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	pwdErr := bcrypt.CompareHashAndPassword(a.bcryptPwd, []byte(password))
	if !userOk || pwdErr != nil {
		logger.FromContext(ctx).Info("teacher login rejected", "username", username)
		return "", newErrInvalidCredentials()
	}

	token, claims, err := GenerateJWT(a.username, RoleTeacher, a.tokenTTL, a.jwtKey)
	if err != nil {
		return "", srvcerror.ErrInternalSE().SetDebug(fmt.Errorf("signing token: %w", err))
	}
	a.sessions.Add(claims.ID, a.tokenTTL)

	logger.FromContext(ctx).Info("teacher logged in", "username", username)
	return token, nil
}

// Authorize accepts tokens that verify and still have a live session.
func (a *TeacherAuth) Authorize(token string) (*JwtClaims, error) {
	claims, err := ValidateJWT(token, a.jwtKey)
	if err != nil {
		return nil, srvcerror.ErrUnauthorized().SetDebug(err)
	}
	if claims.Role != RoleTeacher || claims.ID == "" || !a.sessions.Has(claims.ID) {
		return nil, srvcerror.ErrUnauthorized()
	}
	return claims, nil
}

// Logout ends the session of token.
func (a *TeacherAuth) Logout(token string) error {
	claims, err := a.Authorize(token)
	if err != nil {
		return err
	}
	a.sessions.Remove(claims.ID)
	return nil
}
