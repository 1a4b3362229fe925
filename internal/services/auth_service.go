// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/infonomu/bni/internal/config"
	"github.com/infonomu/bni/internal/models"
	"github.com/infonomu/bni/internal/session"
	"github.com/infonomu/bni/internal/utils"
)

// ErrInvalidCredentials is the single error for a wrong email or password;
// callers must not be able to tell which was wrong.
var ErrInvalidCredentials = session.ErrInvalidCredentials

// AuthService creates identities, issues and rotates sessions, and keeps
// the profile record in step. It implements session.Backend and
// session.Notifier so per-client session managers can mirror its state.
type AuthService struct {
	db    *gorm.DB
	redis *redis.Client
	cfg   *config.Config

	mu      sync.Mutex
	nextSub int
	subs    map[int]func(session.AuthEvent)
}

type RegisterRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	Name          string `json:"name" validate:"required,max=100"`
	Phone         string `json:"phone" validate:"omitempty,kr_mobile"`
	Chapter       string `json:"chapter"`
	Specialty     string `json:"specialty"`
	Company       string `json:"company"`
	PostalCode    string `json:"postal_code"`
	Address       string `json:"address"`
	AddressDetail string `json:"address_detail"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Profile      *models.Profile `json:"profile"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{
		db:    db,
		redis: redisClient,
		cfg:   cfg,
		subs:  make(map[int]func(session.AuthEvent)),
	}
}

// Register creates the identity and then upserts the linked profile row.
// Identity creation is the source of truth: a failed profile write is
// logged, not fatal.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var existing models.Profile
	if err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, errors.New("user with this email already exists")
	}

	profile := &models.Profile{
		Name:    req.Name,
		Email:   req.Email,
		Role:    models.RoleMember,
		Chapter: req.Chapter,
	}
	if err := profile.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	// Fill in the remaining profile fields keyed by the new identity id.
	updates := map[string]interface{}{
		"phone":          req.Phone,
		"specialty":      req.Specialty,
		"company":        req.Company,
		"postal_code":    req.PostalCode,
		"address":        req.Address,
		"address_detail": req.AddressDetail,
	}
	if err := s.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("identity_id", profile.ID).Error("profile upsert failed after sign-up")
	}

	return s.issueSession(ctx, profile)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := profile.CheckPassword(req.Password); err != nil {
		return nil, session.ErrInvalidCredentials
	}

	now := time.Now()
	profile.LastLoginAt = &now
	s.db.WithContext(ctx).Save(&profile)

	return s.issueSession(ctx, &profile)
}

// RefreshToken rotates a session given a valid, unrevoked refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	identityIDStr, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	identityID, err := uuid.Parse(identityIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid identity ID in token: %w", err)
	}

	if !s.refreshTokenValid(ctx, identityID, refreshToken) {
		return nil, errors.New("refresh_token revoked or unknown")
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", identityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("identity not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	s.revokeRefreshToken(ctx, refreshToken)
	return s.issueSession(ctx, &profile)
}

// Logout revokes the refresh token. Local session state is the caller's to
// clear; revocation failure only loses the revocation list entry.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	s.revokeRefreshToken(ctx, refreshToken)
	if idStr, err := utils.ValidateRefreshToken(refreshToken); err == nil {
		if id, perr := uuid.Parse(idStr); perr == nil {
			s.broadcast(session.AuthEvent{IdentityID: id})
		}
	}
	return nil
}

func (s *AuthService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("profile not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &profile, nil
}

// UpdateProfile applies the given field updates and returns the
// server-confirmed row.
func (s *AuthService) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Profile, error) {
	// Only profile-owned columns are writable here.
	allowed := map[string]bool{
		"name": true, "phone": true, "chapter": true, "specialty": true,
		"company": true, "postal_code": true, "address": true, "address_detail": true,
	}
	filtered := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		if allowed[k] {
			filtered[k] = v
		}
	}

	if len(filtered) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).
			Updates(filtered).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	return s.GetProfile(ctx, id)
}

func (s *AuthService) issueSession(ctx context.Context, profile *models.Profile) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(profile.ID, profile.Name, string(profile.Role), s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(profile.ID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	s.storeRefreshToken(ctx, profile.ID, refreshToken)

	s.broadcast(session.AuthEvent{
		IdentityID: profile.ID,
		Session: &session.Session{
			IdentityID:   profile.ID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(time.Duration(s.cfg.JWT.AccessTokenTTL) * time.Hour),
		},
	})

	return &AuthResponse{
		Profile:      profile,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}

// Refresh-token store. Hashes live in Redis with the token TTL; without
// Redis the service degrades to stateless tokens (no revocation).

func (s *AuthService) refreshKey(token string) string {
	return "refresh:" + utils.HashString(token)
}

func (s *AuthService) storeRefreshToken(ctx context.Context, identityID uuid.UUID, token string) {
	if s.redis == nil {
		return
	}
	ttl := time.Duration(s.cfg.JWT.RefreshTokenTTL) * time.Hour
	if err := s.redis.Set(ctx, s.refreshKey(token), identityID.String(), ttl).Err(); err != nil {
		logrus.WithError(err).Warn("failed to store refresh token")
	}
}

func (s *AuthService) refreshTokenValid(ctx context.Context, identityID uuid.UUID, token string) bool {
	if s.redis == nil {
		return true
	}
	val, err := s.redis.Get(ctx, s.refreshKey(token)).Result()
	if err != nil {
		return false
	}
	return val == identityID.String()
}

func (s *AuthService) revokeRefreshToken(ctx context.Context, token string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, s.refreshKey(token)).Err(); err != nil {
		logrus.WithError(err).Warn("failed to revoke refresh token")
	}
}

// session.Backend

// LoadPersisted establishes the server's own session. End-user sessions
// are bearer tokens held by their clients; the server itself signs in as
// the privileged service identity when a service key is configured, so
// its queries can ride the refresh-and-retry cycle.
func (s *AuthService) LoadPersisted(ctx context.Context) (*session.Session, error) {
	if s.cfg.Function.ServiceKey == "" {
		return nil, nil
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("role = ?", models.RoleAdmin).
		Order("created_at ASC").First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	accessToken, err := utils.GenerateJWT(profile.ID, profile.Name, string(profile.Role), s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(profile.ID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	s.storeRefreshToken(ctx, profile.ID, refreshToken)

	return &session.Session{
		IdentityID:   profile.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(s.cfg.JWT.AccessTokenTTL) * time.Hour),
	}, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	resp, err := s.Login(ctx, &LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return &session.Session{
		IdentityID:   resp.Profile.ID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}

func (s *AuthService) SignOut(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return nil
	}
	return s.Logout(ctx, sess.RefreshToken)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*session.Session, error) {
	resp, err := s.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &session.Session{
		IdentityID:   resp.Profile.ID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}

func (s *AuthService) FetchProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return s.GetProfile(ctx, id)
}

// session.Notifier

func (s *AuthService) Subscribe(fn func(session.AuthEvent)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// broadcast delivers an identity-scoped event; managers for other
// identities ignore it.
func (s *AuthService) broadcast(ev session.AuthEvent) {
	s.mu.Lock()
	fns := make([]func(session.AuthEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
