package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/repository"
)

// Claims 是签发给客户端的 JWT 载荷，HTTP 中间件和 WebSocket 握手都用它识别身份。
type Claims struct {
	UserID      uint               `json:"user_id"`
	Email       string             `json:"email"`
	AccountType domain.AccountType `json:"account_type"`
	jwt.RegisteredClaims
}

// RegisterInput 是注册所需的字段
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	AccountType domain.AccountType
}

// AuthService 负责用户注册、登录和令牌签发。
type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
}

// NewAuthService 创建 AuthService 实例。
// jwtExpiryHours <= 0 时默认 24 小时。
func NewAuthService(userRepo repository.UserRepository, jwtSecretKey string, jwtExpiryHours int) (*AuthService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	if jwtSecretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if jwtExpiryHours <= 0 {
		jwtExpiryHours = 24
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecretKey),
		jwtExpiry: time.Duration(jwtExpiryHours) * time.Hour,
	}, nil
}

// Register 处理用户注册。账户类型为空时默认为 Student。
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	logCtx := logrus.WithField("email", email)

	if email == "" || in.Password == "" || strings.TrimSpace(in.FirstName) == "" {
		return nil, fmt.Errorf("%w: first name, email and password are required", ErrInvalidEvent)
	}
	accountType := in.AccountType
	if accountType == "" {
		accountType = domain.AccountStudent
	}
	if !accountType.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", ErrInvalidEvent, accountType)
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		logCtx.Warn("Registration failed: email already exists")
		return nil, ErrRegistrationFailed
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		logCtx.WithError(err).Error("Database error while checking email")
		return nil, ErrInternalServer
	}

	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during registration")
		return nil, ErrInternalServer
	}

	user := &domain.User{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       email,
		Password:    hashedPassword,
		AccountType: accountType,
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.WithError(err).Warn("Registration failed: email already exists (repo error)")
			return nil, ErrRegistrationFailed
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User registered successfully")
	user.Password = ""
	return user, nil
}

// Login 校验邮箱和密码，成功时返回签名后的 token 和用户信息。
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	logCtx := logrus.WithField("email", email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Login attempt failed: User not found")
		} else {
			logCtx.WithError(err).Warn("Login attempt failed: Error finding user")
		}
		return "", nil, ErrAuthenticationFailed
	}
	if user == nil {
		return "", nil, ErrAuthenticationFailed
	}

	if !checkPassword(password, user.Password) {
		logCtx.Warn("Login attempt failed: Invalid password")
		return "", nil, ErrAuthenticationFailed
	}

	token, err := s.generateJWT(user)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token during login")
		return "", nil, ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in successfully")
	user.Password = ""
	return token, user, nil
}

// ParseToken 校验 token 并返回其中的身份信息。
func ParseToken(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token or claims")
	}
	return claims, nil
}

// --- 私有辅助函数 ---

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *AuthService) generateJWT(user *domain.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:      user.ID,
		Email:       user.Email,
		AccountType: user.AccountType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
