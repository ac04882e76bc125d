package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spark-repository/spark-api/internal/entity"
	search "github.com/spark-repository/spark-api/internal/modules/search/service"
	"github.com/spark-repository/spark-api/internal/modules/user/dto"
	"github.com/spark-repository/spark-api/internal/modules/user/repository"
	"github.com/spark-repository/spark-api/pkg/apperror"
	"github.com/spark-repository/spark-api/pkg/mailer"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

const (
	signupTokenTTL   = 48 * time.Hour
	recoveryTokenTTL = time.Hour
)

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) error
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	GoogleLogin() string
	Callback(ctx context.Context, code, tokenHash, flowType, next string) (*dto.CallbackResult, error)
	CallbackFailureURL(err error) string
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error
}

type authService struct {
	repo         repository.UserRepository
	mail         mailer.Mailer
	indexer      search.StudyIndexer
	secret       string
	tokenTTL     time.Duration
	frontendURL  string
	apiBaseURL   string
	googleConfig *oauth2.Config
}

func NewAuthService(repo repository.UserRepository, mail mailer.Mailer, indexer search.StudyIndexer) AuthService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "change-me"
	}

	ttl := 12 * time.Hour
	if ttlStr := os.Getenv("JWT_TOKEN_TTL"); ttlStr != "" {
		if parsed, err := time.ParseDuration(ttlStr); err == nil {
			ttl = parsed
		}
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8080"
	}

	googleConfig := &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return &authService{
		repo:         repo,
		mail:         mail,
		indexer:      indexer,
		secret:       secret,
		tokenTTL:     ttl,
		frontendURL:  frontendURL,
		apiBaseURL:   apiBaseURL,
		googleConfig: googleConfig,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) error {
	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return fmt.Errorf("an account with this email already exists: %w", apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	role, err := s.repo.FindRoleByName(ctx, entity.RoleStudent)
	if err != nil {
		return fmt.Errorf("default role not found: %w", apperror.ErrInternal)
	}

	user := &entity.User{
		Email:        input.Email,
		PasswordHash: string(hashed),
		RoleID:       &role.ID,
		Role:         *role,
		FullName:     input.FullName,
		Department:   &input.Department,
		StudentID:    input.StudentID,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}

	rawToken, err := s.issueToken(ctx, user.ID, entity.TokenTypeSignup, signupTokenTTL)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/api/auth/callback?token_hash=%s&type=signup", s.apiBaseURL, url.QueryEscape(rawToken))
	if err := s.mail.Send(user.Email, "Confirm your SPARK account",
		fmt.Sprintf(`<p>Welcome to the SPARK research repository, %s.</p><p><a href="%s">Confirm your email address</a> to activate your account. The link expires in 48 hours.</p>`, user.FullName, link),
	); err != nil {
		// The account exists; a failed mail send should not roll it back.
		log.Printf("failed to send confirmation email to %s: %v", user.Email, err)
	}

	return nil
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)
	}

	if user.EmailVerifiedAt == nil {
		return nil, fmt.Errorf("email not verified, please check your inbox: %w", apperror.ErrForbidden)
	}

	return s.buildAuthResponse(user)
}

func (s *authService) GoogleLogin() string {
	return s.googleConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

// Callback resolves the single OAuth/email-link callback endpoint. Exactly one
// of code or tokenHash is expected; flowType distinguishes recovery links from
// signup confirmation, and next is the post-login destination.
func (s *authService) Callback(ctx context.Context, code, tokenHash, flowType, next string) (*dto.CallbackResult, error) {
	if next == "" {
		next = "/"
	}

	if code != "" {
		resp, err := s.googleCallback(ctx, code)
		if err != nil {
			return nil, err
		}
		return &dto.CallbackResult{
			RedirectTo: fmt.Sprintf("%s/auth/complete?next=%s#access_token=%s", s.frontendURL, url.QueryEscape(next), resp.AccessToken),
		}, nil
	}

	if tokenHash != "" {
		switch flowType {
		case "recovery":
			if _, err := s.matchActiveToken(ctx, tokenHash, entity.TokenTypeRecovery); err != nil {
				return nil, err
			}
			return &dto.CallbackResult{
				RedirectTo: fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(tokenHash)),
			}, nil
		case "signup":
			token, err := s.matchActiveToken(ctx, tokenHash, entity.TokenTypeSignup)
			if err != nil {
				return nil, err
			}
			now := time.Now().UTC()
			if err := s.repo.MarkEmailVerified(ctx, token.UserID, now); err != nil {
				return nil, err
			}
			if err := s.repo.RevokeToken(ctx, token.ID, now); err != nil {
				return nil, err
			}
			return &dto.CallbackResult{
				RedirectTo: fmt.Sprintf("%s/login?verified=1&next=%s", s.frontendURL, url.QueryEscape(next)),
			}, nil
		}
	}

	return nil, fmt.Errorf("invalid or expired link: %w", apperror.ErrBadRequest)
}

// CallbackFailureURL is where the browser lands when a callback cannot be
// resolved. Failures go to the frontend login page, not an API route.
func (s *authService) CallbackFailureURL(err error) string {
	msg := "invalid or expired link"
	if err != nil {
		msg = err.Error()
	}
	return fmt.Sprintf("%s/login?error=%s", s.frontendURL, url.QueryEscape(msg))
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Report success for unknown addresses to avoid email enumeration.
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	if err := s.repo.RevokeUserTokens(ctx, user.ID, entity.TokenTypeRecovery, now); err != nil {
		return err
	}

	rawToken, err := s.issueToken(ctx, user.ID, entity.TokenTypeRecovery, recoveryTokenTTL)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/api/auth/callback?token_hash=%s&type=recovery", s.apiBaseURL, url.QueryEscape(rawToken))
	if err := s.mail.Send(user.Email, "Reset your SPARK password",
		fmt.Sprintf(`<p>A password reset was requested for your account.</p><p><a href="%s">Choose a new password</a>. The link expires in 1 hour. If you did not request this, you can ignore this email.</p>`, link),
	); err != nil {
		return fmt.Errorf("failed to send reset email: %w", apperror.ErrInternal)
	}

	return nil
}

func (s *authService) ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error {
	token, err := s.matchActiveToken(ctx, input.Token, entity.TokenTypeRecovery)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, token.UserID, string(hashed)); err != nil {
		return err
	}

	return s.repo.RevokeUserTokens(ctx, token.UserID, entity.TokenTypeRecovery, time.Now().UTC())
}

func (s *authService) googleCallback(ctx context.Context, code string) (*dto.AuthResponse, error) {
	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", apperror.ErrBadRequest)
	}

	client := s.googleConfig.Client(ctx, token)
	userInfoResp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", apperror.ErrInternal)
	}
	defer userInfoResp.Body.Close()

	var googleUser googleProfile
	if err := json.NewDecoder(userInfoResp.Body).Decode(&googleUser); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", apperror.ErrInternal)
	}

	if domain := os.Getenv("ALLOWED_EMAIL_DOMAIN"); domain != "" {
		if !strings.HasSuffix(googleUser.Email, "@"+domain) {
			return nil, fmt.Errorf("email domain must be @%s: %w", domain, apperror.ErrForbidden)
		}
	}

	user, err := s.findOrCreateGoogleUser(ctx, googleUser)
	if err != nil {
		return nil, err
	}

	return s.buildAuthResponse(user)
}

type googleProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// findOrCreateGoogleUser resolves a Google sign-in to a local account: by
// Google ID first, then by email (linking the Google ID and verifying the
// address), and finally by registering a fresh verified student.
func (s *authService) findOrCreateGoogleUser(ctx context.Context, profile googleProfile) (*entity.User, error) {
	if user, err := s.repo.FindByGoogleID(ctx, profile.ID); err == nil {
		return user, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, profile.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		// First sign-in through Google: register the account with a random
		// password and a verified email.
		randomPassword := uuid.New().String()
		hashed, _ := bcrypt.GenerateFromPassword([]byte(randomPassword), bcrypt.DefaultCost)

		role, err := s.repo.FindRoleByName(ctx, entity.RoleStudent)
		if err != nil {
			return nil, fmt.Errorf("default role not found: %w", apperror.ErrInternal)
		}

		now := time.Now().UTC()
		newUser := &entity.User{
			Email:           profile.Email,
			PasswordHash:    string(hashed),
			RoleID:          &role.ID,
			Role:            *role,
			FullName:        profile.Name,
			AvatarURL:       &profile.Picture,
			GoogleID:        &profile.ID,
			EmailVerifiedAt: &now,
		}

		if err := s.repo.Create(ctx, newUser); err != nil {
			return nil, err
		}
		return newUser, nil
	}

	// Existing password account signing in with Google for the first time.
	user.GoogleID = &profile.ID
	if user.EmailVerifiedAt == nil {
		now := time.Now().UTC()
		user.EmailVerifiedAt = &now
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return nil, err
	}

	resp := &dto.AuthResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
		User:        user,
	}

	if s.indexer != nil {
		searchToken, err := s.indexer.GenerateSearchToken()
		if err != nil {
			// Login still works without catalog search; the frontend falls
			// back to the API listing.
			log.Printf("failed to generate search token for %s: %v", user.Email, err)
		} else {
			resp.SearchToken = searchToken
		}
	}

	return resp, nil
}

// issueToken stores the bcrypt hash of a fresh random token and returns the
// raw value for the email link.
func (s *authService) issueToken(ctx context.Context, userID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	token := &entity.AuthToken{
		UserID:    userID,
		TokenHash: string(hashed),
		TokenType: tokenType,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	if err := s.repo.CreateToken(ctx, token); err != nil {
		return "", err
	}

	return raw, nil
}

// matchActiveToken compares the raw token against every live hash of the given
// type, oldest last. Bcrypt hashes are not lookupable, so this is a scan over
// the (short) active set.
func (s *authService) matchActiveToken(ctx context.Context, raw, tokenType string) (*entity.AuthToken, error) {
	tokens, err := s.repo.FindActiveTokens(ctx, tokenType, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	for i := range tokens {
		if bcrypt.CompareHashAndPassword([]byte(tokens[i].TokenHash), []byte(raw)) == nil {
			return &tokens[i], nil
		}
	}

	return nil, fmt.Errorf("invalid or expired link: %w", apperror.ErrUnauthorized)
}
