// Package services contains server-side business logic. This file implements
// AuthService, which runs the account flows end to end: sign-up, password and
// bearer authentication, token rotation, sign-out, password change and reset,
// and email verification.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/chirper/internal/common"
	"github.com/dmitrijs2005/chirper/internal/logging"
	"github.com/dmitrijs2005/chirper/internal/server/auth"
	"github.com/dmitrijs2005/chirper/internal/server/mail"
	"github.com/dmitrijs2005/chirper/internal/server/models"
	"github.com/dmitrijs2005/chirper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/chirper/internal/server/repositories/users"
	"github.com/dmitrijs2005/chirper/internal/server/sessions"
	"github.com/dmitrijs2005/chirper/internal/server/verification"
	"github.com/google/uuid"
)

// Defaults applied by NewAuthService to zero Options fields.
const (
	DefaultVerifyTokenLength     = 32
	DefaultPasswordResetTokenTTL = 10 * time.Minute
)

// TokenKind selects which secret UserFromToken verifies against.
type TokenKind int

const (
	AccessTokenKind TokenKind = iota
	RefreshTokenKind
)

// SignInRequest is the input of a password sign-in. OldRefreshToken, when
// set, names a session of the same user that the new one replaces.
type SignInRequest struct {
	Email           string
	Password        string
	OriginURL       string
	OldRefreshToken string
}

// Options are the tunables of AuthService.
type Options struct {
	VerifyTokenLength     int
	PasswordResetTokenTTL time.Duration
}

// Deps are the collaborators AuthService composes.
type Deps struct {
	Hasher      *auth.PasswordHasher
	Tokens      *auth.TokenIssuer
	Sessions    *sessions.Cache
	EmailTokens *verification.Store
	ResetTokens *verification.Store
	Mailer      mail.Sender
}

// AuthService is the single place where lower-level failures are classified:
// every error it returns is a *common.AppError.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenIssuer
	sessions    *sessions.Cache
	emailTokens *verification.Store
	resetTokens *verification.Store
	mailer      mail.Sender
	opts        Options
	log         logging.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, deps Deps, opts Options, log logging.Logger) *AuthService {
	if opts.VerifyTokenLength <= 0 {
		opts.VerifyTokenLength = DefaultVerifyTokenLength
	}
	if opts.PasswordResetTokenTTL <= 0 {
		opts.PasswordResetTokenTTL = DefaultPasswordResetTokenTTL
	}
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		sessions:    deps.Sessions,
		emailTokens: deps.EmailTokens,
		resetTokens: deps.ResetTokens,
		mailer:      deps.Mailer,
		opts:        opts,
		log:         log.With("module", "auth"),
	}
}

func (s *AuthService) users() users.Repository {
	return s.repomanager.Users(s.db)
}

// SignUp creates an unverified user and mails it a verification link. A
// failure to store the token or send the mail is logged but does not undo
// the sign-up; the user can ask for a new link.
func (s *AuthService) SignUp(ctx context.Context, in models.NewUser) (*models.PublicUser, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.fail(ctx, "sign up", err, "Error creating user")
	}

	user, err := s.users().Create(ctx, &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.Conflict("email")
		}
		return nil, s.fail(ctx, "sign up", err, "Error creating user")
	}

	if err := s.sendVerification(ctx, user); err != nil {
		s.log.Warn(ctx, "verification mail not delivered", "user_id", user.ID, "error", err)
	}

	pub := user.Public()
	return &pub, nil
}

// Authenticate checks email and password and opens a new session.
func (s *AuthService) Authenticate(ctx context.Context, req SignInRequest) (*sessions.AuthUser, error) {
	user, err := s.users().GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.InvalidCredentials()
		}
		return nil, s.fail(ctx, "authenticate", err, "")
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, common.InvalidCredentials()
	}
	if !user.EmailVerified {
		return nil, common.Forbidden("Email not verified")
	}

	session, err := s.openSession(ctx, user.Public(), req.OldRefreshToken, req.OriginURL)
	if err != nil {
		return nil, s.fail(ctx, "authenticate", err, "")
	}

	return &sessions.AuthUser{PublicUser: user.Public(), Session: session}, nil
}

// SignIn is Authenticate plus token expiries, as returned to clients.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest) (*models.AuthResponse, error) {
	au, err := s.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	tr, err := s.tokenResponse(au.Session.AccessToken, au.Session.RefreshToken)
	if err != nil {
		return nil, s.fail(ctx, "sign in", err, "Error signing in")
	}

	return &models.AuthResponse{TokenResponse: *tr, User: au.PublicUser}, nil
}

// AuthenticateBearer resolves the caller of a protected request. The token
// must verify and must still belong to a cached session of its subject.
func (s *AuthService) AuthenticateBearer(ctx context.Context, accessToken string) (*sessions.AuthUser, error) {
	payload, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.Unauthorized("Access token expired")
		}
		return nil, common.Unauthorized("Invalid access token")
	}

	cached, ok, err := s.sessions.GetUser(ctx, payload.Subject)
	if err != nil {
		return nil, s.fail(ctx, "authenticate bearer", err, "")
	}
	if !ok {
		return nil, common.Unauthorized("Invalid access token")
	}

	session, ok := cached.SessionByAccessToken(accessToken)
	if !ok {
		return nil, common.Unauthorized("Invalid access token")
	}

	return &sessions.AuthUser{PublicUser: cached.PublicUser, Session: session}, nil
}

// CurrentUser returns the stored profile of the authenticated caller.
func (s *AuthService) CurrentUser(ctx context.Context, au *sessions.AuthUser) (*models.PublicUser, error) {
	user, err := s.users().Get(ctx, au.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("user", "id")
		}
		return nil, s.fail(ctx, "current user", err, "Error fetching user")
	}
	pub := user.Public()
	return &pub, nil
}

// Refresh rotates a refresh token: the session holding it is replaced by a
// new one, so the presented token cannot be used again.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	payload, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.Unauthorized("Refresh token expired")
		}
		return nil, common.Unauthorized("Invalid refresh token")
	}

	cached, ok, err := s.sessions.GetUser(ctx, payload.Subject)
	if err != nil {
		return nil, s.fail(ctx, "refresh", err, "")
	}
	if !ok {
		return nil, common.Unauthorized("Invalid refresh token")
	}

	old, ok := cached.SessionByRefreshToken(refreshToken)
	if !ok {
		return nil, common.Unauthorized("Expired refresh token")
	}

	user, err := s.users().Get(ctx, payload.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized("Invalid refresh token")
		}
		return nil, s.fail(ctx, "refresh", err, "")
	}

	session, err := s.openSession(ctx, user.Public(), refreshToken, old.OriginURL)
	if err != nil {
		return nil, s.fail(ctx, "refresh", err, "")
	}

	tr, err := s.tokenResponse(session.AccessToken, session.RefreshToken)
	if err != nil {
		return nil, s.fail(ctx, "refresh", err, "")
	}
	return tr, nil
}

// SignOut ends the caller's session. With other sessions left, those whose
// refresh token no longer verifies are dropped as well; when nothing is
// left the cached entry is removed.
func (s *AuthService) SignOut(ctx context.Context, au *sessions.AuthUser) error {
	cached, ok, err := s.sessions.GetUser(ctx, au.ID)
	if err != nil {
		return s.fail(ctx, "sign out", err, "Error signing out")
	}

	if ok && len(cached.Sessions) > 1 {
		remaining := cached.WithoutAccessToken(au.Session.AccessToken)
		live := remaining[:0]
		for _, sess := range remaining {
			if _, err := s.tokens.VerifyRefresh(sess.RefreshToken); err == nil {
				live = append(live, sess)
			}
		}
		cached.Sessions = live

		if len(cached.Sessions) > 0 {
			if err := s.sessions.SetUser(ctx, cached); err != nil {
				return s.fail(ctx, "sign out", err, "Error signing out")
			}
			return nil
		}
	}

	if err := s.sessions.ClearUser(ctx, au.ID); err != nil {
		return s.fail(ctx, "sign out", err, "Error signing out")
	}
	return nil
}

// ChangePassword replaces the caller's password after checking the old one.
// Other sessions stay signed in.
func (s *AuthService) ChangePassword(ctx context.Context, au *sessions.AuthUser, oldPassword, newPassword string) error {
	user, err := s.users().Get(ctx, au.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound("user", "id")
		}
		return s.fail(ctx, "change password", err, "Password change failed")
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return common.Forbidden("Invalid password")
	}

	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return s.fail(ctx, "change password", err, "Password change failed")
	}
	return nil
}

// RequestPasswordReset mails a single-use reset link. Both storing the token
// and sending the mail must succeed.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound("user", "email")
		}
		return s.fail(ctx, "request password reset", err, "Error sending password reset email")
	}

	token, err := common.MakeRandHexString(s.opts.VerifyTokenLength)
	if err != nil {
		return s.fail(ctx, "request password reset", err, "Error sending password reset email")
	}
	if err := s.resetTokens.Save(ctx, user.ID, token, s.opts.PasswordResetTokenTTL); err != nil {
		return s.fail(ctx, "request password reset", err, "Error sending password reset email")
	}

	err = s.mailer.SendPasswordResetEmail(ctx, user.Email, mail.PasswordResetMail{
		FirstName:     user.FirstName,
		Token:         token,
		ExpiryMinutes: int(s.opts.PasswordResetTokenTTL / time.Minute),
	})
	if err != nil {
		return s.fail(ctx, "request password reset", err, "Error sending password reset email")
	}
	return nil
}

// VerifyResetPasswordToken reports whether token is a live reset token.
func (s *AuthService) VerifyResetPasswordToken(ctx context.Context, token string) error {
	_, ok, err := s.resetTokens.UserByToken(ctx, token)
	if err != nil {
		return s.fail(ctx, "verify reset token", err, "")
	}
	if !ok {
		return common.Unauthorized("Invalid password reset token")
	}
	return nil
}

// ResetPassword sets a new password using a reset token. The token is
// consumed only after the password was stored, so a failed update can be
// retried with the same link.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, ok, err := s.resetTokens.UserByToken(ctx, token)
	if err != nil {
		return s.fail(ctx, "reset password", err, "Error resetting password")
	}
	if !ok {
		return common.Unauthorized("Invalid password reset token")
	}

	if err := s.setPassword(ctx, userID, newPassword); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound("user", "id")
		}
		return s.fail(ctx, "reset password", err, "Error resetting password")
	}

	if err := s.resetTokens.ClearByUser(ctx, userID); err != nil {
		return s.fail(ctx, "reset password", err, "Error resetting password")
	}
	return nil
}

// VerifyEmail marks the token's user as verified. An unknown or expired
// token yields false without an error.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (bool, error) {
	userID, ok, err := s.emailTokens.UserByToken(ctx, token)
	if err != nil {
		return false, s.fail(ctx, "verify email", err, "Error verifying email")
	}
	if !ok {
		return false, nil
	}

	verified := true
	if _, err := s.users().Update(ctx, userID, models.UserUpdate{EmailVerified: &verified}); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, common.NotFound("user", "id")
		}
		return false, s.fail(ctx, "verify email", err, "Error verifying email")
	}

	if err := s.emailTokens.ClearByUser(ctx, userID); err != nil {
		return false, s.fail(ctx, "verify email", err, "Error verifying email")
	}
	return true, nil
}

// ResendEmailVerification issues a fresh verification link, invalidating
// the previous one.
func (s *AuthService) ResendEmailVerification(ctx context.Context, email string) error {
	user, err := s.users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound("user", "email")
		}
		return s.fail(ctx, "resend verification", err, "Error sending verification email")
	}

	if user.EmailVerified {
		return common.BadRequest("Email already verified")
	}

	if err := s.sendVerification(ctx, user); err != nil {
		return s.fail(ctx, "resend verification", err, "Error sending verification email")
	}
	return nil
}

// UserFromToken verifies token as the given kind and loads its subject.
// It does not consult the session cache.
func (s *AuthService) UserFromToken(ctx context.Context, token string, kind TokenKind) (*models.PublicUser, error) {
	verify := s.tokens.VerifyAccess
	if kind == RefreshTokenKind {
		verify = s.tokens.VerifyRefresh
	}

	payload, err := verify(token)
	if err != nil {
		return nil, common.Unauthorized("")
	}

	user, err := s.users().Get(ctx, payload.Subject)
	if err != nil {
		s.log.Debug(ctx, "token subject not loadable", "user_id", payload.Subject, "error", err)
		return nil, common.Unauthorized("")
	}

	pub := user.Public()
	return &pub, nil
}

// openSession issues a token pair for user and stores it as a new session,
// dropping the session holding replaceRefresh if given.
func (s *AuthService) openSession(ctx context.Context, user models.PublicUser, replaceRefresh, originURL string) (sessions.Session, error) {
	payload := auth.TokenPayload{Subject: user.ID}
	access, err := s.tokens.IssueAccess(payload)
	if err != nil {
		return sessions.Session{}, err
	}
	refresh, err := s.tokens.IssueRefresh(payload)
	if err != nil {
		return sessions.Session{}, err
	}

	cached, ok, err := s.sessions.GetUser(ctx, user.ID)
	if err != nil {
		return sessions.Session{}, err
	}
	if !ok {
		cached = &sessions.CachedUser{}
	}
	cached.PublicUser = user
	if replaceRefresh != "" {
		cached.Sessions = cached.WithoutRefreshToken(replaceRefresh)
	}

	session := sessions.Session{
		SessionID:    uuid.NewString(),
		AccessToken:  access,
		RefreshToken: refresh,
		OriginURL:    originURL,
	}
	cached.Sessions = append(cached.Sessions, session)

	if err := s.sessions.SetUser(ctx, cached); err != nil {
		return sessions.Session{}, err
	}
	return session, nil
}

func (s *AuthService) tokenResponse(access, refresh string) (*models.TokenResponse, error) {
	accessExp, err := s.tokens.ExpiryOf(access)
	if err != nil {
		return nil, err
	}
	refreshExp, err := s.tokens.ExpiryOf(refresh)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *models.User) error {
	token, err := common.MakeRandHexString(s.opts.VerifyTokenLength)
	if err != nil {
		return err
	}
	if err := s.emailTokens.Save(ctx, user.ID, token, 0); err != nil {
		return err
	}
	return s.mailer.SendVerificationEmail(ctx, user.Email, mail.VerificationMail{
		FirstName: user.FirstName,
		Token:     token,
	})
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	_, err = s.users().Update(ctx, userID, models.UserUpdate{PasswordHash: &hash})
	return err
}

// fail passes classified errors through and turns anything else into an
// Internal error after logging it once.
func (s *AuthService) fail(ctx context.Context, op string, err error, msg string) error {
	if appErr, ok := common.AsAppError(err); ok {
		return appErr
	}
	s.log.Error(ctx, op+" failed", "error", err)
	return common.Internal(msg)
}
