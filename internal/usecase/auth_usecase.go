package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chefchain/internal/config"
	"chefchain/internal/domain/model"
	"chefchain/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, in RegisterInput) error
	ValidateLogin(ctx context.Context, in LoginInput) error
	ValidateRefresh(ctx context.Context, refreshToken string) error
}

type RegisterInput struct {
	Username string `validate:"required,min=3,max=150"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Username string `validate:"required,max=150"`
	Password string `validate:"required,max=72"`
}

type UserDTO struct {
	ID       int64      `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
}

// /login /refresh のレスポンス
type TokenPairOutput struct {
	Access  string  `json:"access"`
	Refresh string  `json:"refresh"`
	User    UserDTO `json:"user"`
}

type AuthUsecase struct {
	cfg       config.Config
	users     repository.UserRepository
	rtRepo    repository.RefreshTokenRepository
	auditRepo repository.AuditLogRepository
	validator AuthValidator
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewAuthUsecase(
	cfg config.Config,
	users repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	auditRepo repository.AuditLogRepository,
	validator AuthValidator,
	logger *zap.SugaredLogger,
) *AuthUsecase {
	return &AuthUsecase{
		cfg:       cfg,
		users:     users,
		rtRepo:    rtRepo,
		auditRepo: auditRepo,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// 登録は常にcustomer
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserDTO, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := u.validator.ValidateRegister(ctx, in); err != nil {
		return UserDTO{}, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserDTO{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(pwHash),
		Role:         model.RoleCustomer,
		IsActive:     true,
	}

	if err := u.users.Create(ctx, user); err != nil {
		// 同時登録で一意制約に当たった
		if errors.Is(err, repository.ErrConflict) {
			return UserDTO{}, NewHTTPError(http.StatusConflict, "username already taken")
		}
		return UserDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toUserDTO(user), nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (TokenPairOutput, error) {
	in.Username = strings.TrimSpace(in.Username)

	if err := u.validator.ValidateLogin(ctx, in); err != nil {
		return TokenPairOutput{}, err
	}

	user, err := u.users.FindByUsername(ctx, in.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return TokenPairOutput{}, NewHTTPError(http.StatusForbidden, "user is inactive")
	}

	now := u.now()
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		u.logger.Warnw("failed to update last_login_at", "user_id", user.ID, "error", err)
	}

	return u.issuePair(ctx, user)
}

// refreshは1回だけ使える。使用済みが来たら盗用とみなして全部失効
func (u *AuthUsecase) Refresh(ctx context.Context, refreshTokenPlain string) (TokenPairOutput, error) {
	refreshTokenPlain = strings.TrimSpace(refreshTokenPlain)
	if err := u.validator.ValidateRefresh(ctx, refreshTokenPlain); err != nil {
		return TokenPairOutput{}, err
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(refreshTokenPlain))
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	now := u.now()

	if rt.RevokedAt != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}
	if rt.UsedAt != nil {
		u.revokeAll(ctx, rt.UserID, now)
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "refresh token reuse detected")
	}
	if !rt.ExpiresAt.After(now) {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "refresh token expired")
	}

	user, err := u.users.FindByID(ctx, rt.UserID)
	if err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}
	if !user.IsActive {
		return TokenPairOutput{}, NewHTTPError(http.StatusForbidden, "user is inactive")
	}

	//旧tokenをusedにする（同時に使われたら片方は失敗）
	if err := u.rtRepo.MarkUsed(ctx, rt.ID, now); err != nil {
		u.revokeAll(ctx, rt.UserID, now)
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "refresh token reuse detected")
	}

	return u.issuePair(ctx, user)
}

func (u *AuthUsecase) revokeAll(ctx context.Context, userID int64, at time.Time) {
	if err := u.rtRepo.RevokeAllByUserID(ctx, userID, at); err != nil {
		u.logger.Errorw("failed to revoke refresh tokens", "user_id", userID, "error", err)
	}
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (UserDTO, error) {
	if userID <= 0 {
		return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !user.IsActive {
		return UserDTO{}, NewHTTPError(http.StatusForbidden, "user is inactive")
	}
	return toUserDTO(user), nil
}

// ロール変更（管理者）。token_versionが上がるので古いアクセストークンは使えなくなる
func (u *AuthUsecase) SetRole(ctx context.Context, actor Actor, userID int64, role string) (UserDTO, error) {
	if actor.UserID <= 0 {
		return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.Role.CanManageUsers() {
		return UserDTO{}, NewHTTPError(http.StatusForbidden, "admin only")
	}
	if userID <= 0 {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newRole := model.Role(strings.ToLower(strings.TrimSpace(role)))
	if !newRole.Valid() {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "invalid role")
	}
	// 自分を管理者から外すと戻せなくなる
	if userID == actor.UserID && newRole != model.RoleAdmin {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "cannot change own role")
	}

	target, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return UserDTO{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return UserDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	before := target.Role

	if err := u.users.UpdateRole(ctx, userID, newRole); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return UserDTO{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return UserDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	now := u.now()
	u.revokeAll(ctx, userID, now)

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actor.UserID,
		Action:       model.AuditActionUpdateUserRole,
		ResourceType: model.AuditResourceUser,
		ResourceID:   userID,
		BeforeJSON:   auditJSON("role", before),
		AfterJSON:    auditJSON("role", newRole),
		CreatedAt:    now,
	}); err != nil {
		u.logger.Errorw("failed to write audit log", "user_id", userID, "error", err)
	}

	target.Role = newRole
	return toUserDTO(target), nil
}

// 起動時の管理者作成。既にいればロールだけ管理者にする
func (u *AuthUsecase) EnsureAdmin(ctx context.Context, username string, email string, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}

	existing, err := u.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role == model.RoleAdmin {
			return nil
		}
		u.logger.Infow("promoting bootstrap admin", "username", username)
		return u.users.UpdateRole(ctx, existing.ID, model.RoleAdmin)
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := u.users.Create(ctx, &model.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: string(pwHash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}); err != nil {
		// 他のインスタンスが先に作った
		if errors.Is(err, repository.ErrConflict) {
			return nil
		}
		return err
	}

	u.logger.Infow("bootstrap admin created", "username", username)
	return nil
}

func (u *AuthUsecase) issuePair(ctx context.Context, user *model.User) (TokenPairOutput, error) {
	access, err := u.issueAccessToken(user)
	if err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	//refresh token発行（DBにはhash保存）
	refreshPlain, refreshHash, err := newRandomTokenAndHash()
	if err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := u.rtRepo.Create(ctx, &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: refreshHash,
		ExpiresAt: u.now().Add(u.cfg.RefreshTokenTTL),
	}); err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return TokenPairOutput{
		Access:  access,
		Refresh: refreshPlain,
		User:    toUserDTO(user),
	}, nil
}

// jwt発行
func (u *AuthUsecase) issueAccessToken(user *model.User) (string, error) {
	now := u.now()

	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(user.ID, 10),
		"role":     string(user.Role),
		"username": user.Username,
		"email":    user.Email,
		"tv":       user.TokenVersion,
		"iat":      now.Unix(),
		"exp":      now.Add(u.cfg.AccessTokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(u.cfg.JWTSecret))
}

// refresh token生成（平文 + DB保存hash）
func newRandomTokenAndHash() (plain string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}

	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, hashToken(plain), nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
