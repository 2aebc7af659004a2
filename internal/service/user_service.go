package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"Forum_Community/internal/model"
	"Forum_Community/internal/pkg"
	"Forum_Community/internal/repository/mysql"
	"Forum_Community/internal/repository/redis"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxUsername    = 50
	maxDisplayName = 120
	minPassword    = 8
	maxPassword    = 72 // bcrypt 只使用前 72 字节
)

type UserService struct {
	store    *mysql.Store
	issuer   *pkg.TokenIssuer
	sessions *redis.UserRepository
	media    *redis.MediaCacheRepository
	validate *validator.Validate
}

func NewUserService(store *mysql.Store, issuer *pkg.TokenIssuer, sessions *redis.UserRepository, media *redis.MediaCacheRepository) *UserService {
	return &UserService{
		store:    store,
		issuer:   issuer,
		sessions: sessions,
		media:    media,
		validate: validator.New(),
	}
}

// ProfileUpdate nil 表示不修改
type ProfileUpdate struct {
	Username        *string
	DisplayName     *string
	ProfileImageKey *string
}

func validateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < 1 || n > maxUsername {
		return "", pkg.InvalidInput("username must be 1-%d characters", maxUsername)
	}
	return username, nil
}

func validatePassword(password string) error {
	if len(password) < minPassword || len(password) > maxPassword {
		return pkg.InvalidInput("password must be %d-%d characters", minPassword, maxPassword)
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username, err := validateUsername(username)
	if err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if s.validate.Var(email, "required,email,max=255") != nil {
		return nil, pkg.InvalidInput("invalid email")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	// 先查一次给出明确提示，最终以唯一索引为准
	if exists, err := s.store.Users.ExistsUsername(ctx, username, 0); err != nil {
		return nil, dbError(err, "user")
	} else if exists {
		return nil, pkg.Conflict("username already exists")
	}
	if exists, err := s.store.Users.ExistsEmail(ctx, email); err != nil {
		return nil, dbError(err, "user")
	} else if exists {
		return nil, pkg.Conflict("email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, pkg.Internal("hash password", err)
	}
	user := &model.User{
		Username: username,
		Email:    email,
		Password: string(hash),
	}
	err = s.store.Tx(ctx, func(tx *mysql.Store) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			return err
		}
		return tx.Outbox.Append(ctx, model.EventUserRegister, user.ID, map[string]any{"username": user.Username})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkg.Conflict("username or email already exists")
		}
		return nil, dbError(err, "user")
	}
	return user, nil
}

// Login 用户名或邮箱登录；新 token 覆盖 redis 中的旧 token，其他端登录态失效
func (s *UserService) Login(ctx context.Context, login, password string) (*pkg.Pair, *model.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, nil, pkg.InvalidInput("username and password required")
	}
	user, err := s.store.Users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkg.Unauthorized("invalid credentials")
		}
		return nil, nil, dbError(err, "user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, pkg.Unauthorized("invalid credentials")
	}

	pair, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.Outbox.Append(ctx, model.EventUserLogin, user.ID, map[string]any{}); err != nil {
		log.Warn("append login event failed", "user", user.ID, "err", err)
	}
	return pair, user, nil
}

// issueSession 新登录替换旧会话，旧会话的媒体缓存一并丢弃
func (s *UserService) issueSession(ctx context.Context, userID uint64) (*pkg.Pair, error) {
	pair, err := s.issuer.GeneratePair(userID)
	if err != nil {
		return nil, pkg.Internal("issue token", err)
	}
	if err := s.sessions.AddUserToken(ctx, userID, pair.AccessToken); err != nil {
		return nil, pkg.Internal("store session", err)
	}
	s.dropMediaCache(ctx, userID)
	return pair, nil
}

func (s *UserService) dropMediaCache(ctx context.Context, userID uint64) {
	if s.media == nil {
		return
	}
	if err := s.media.Drop(ctx, SessionKey(userID)); err != nil {
		log.Warn("drop media cache failed", "user", userID, "err", err)
	}
}

// Refresh 用 refresh 换新的令牌对，同时替换 redis 中的登录态
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	if refreshToken == "" {
		return nil, pkg.InvalidInput("refresh token required")
	}
	pair, userID, err := s.issuer.Refresh(refreshToken)
	if err != nil {
		return nil, pkg.Unauthorized("%s", err.Error())
	}
	if _, err := s.store.Users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkg.Unauthorized("user no longer exists")
		}
		return nil, dbError(err, "user")
	}
	if err := s.sessions.AddUserToken(ctx, userID, pair.AccessToken); err != nil {
		return nil, pkg.Internal("store session", err)
	}
	return pair, nil
}

// Logout 删除登录态，同时丢弃该会话的媒体缓存
func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	if err := requireActor(userID); err != nil {
		return err
	}
	if err := s.sessions.DeleteUserToken(ctx, userID); err != nil {
		return pkg.Internal("logout", err)
	}
	s.dropMediaCache(ctx, userID)
	return nil
}

func (s *UserService) Me(ctx context.Context, userID uint64) (*model.User, error) {
	if err := requireActor(userID); err != nil {
		return nil, err
	}
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, dbError(err, "user")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, in ProfileUpdate) (*model.User, error) {
	if err := requireActor(userID); err != nil {
		return nil, err
	}
	fields := make(map[string]any, 3)
	if in.Username != nil {
		username, err := validateUsername(*in.Username)
		if err != nil {
			return nil, err
		}
		fields["username"] = username
	}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if utf8.RuneCountInString(name) > maxDisplayName {
			return nil, pkg.InvalidInput("display name must be at most %d characters", maxDisplayName)
		}
		fields["display_name"] = name
	}
	if in.ProfileImageKey != nil {
		// 空字符串表示清除头像
		if key := strings.TrimSpace(*in.ProfileImageKey); key == "" {
			fields["profile_image_key"] = nil
		} else {
			fields["profile_image_key"] = key
		}
	}

	var user *model.User
	err := s.store.Tx(ctx, func(tx *mysql.Store) error {
		u, err := tx.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if username, ok := fields["username"].(string); ok {
			if username == u.Username {
				delete(fields, "username")
			} else if exists, err := tx.Users.ExistsUsername(ctx, username, userID); err != nil {
				return err
			} else if exists {
				return pkg.Conflict("username already exists")
			}
		}
		if len(fields) == 0 {
			user = u
			return nil
		}
		if err := tx.Users.UpdateProfile(ctx, u, fields); err != nil {
			return err
		}
		if user, err = tx.Users.FindByID(ctx, userID); err != nil {
			return err
		}
		return tx.Outbox.Append(ctx, model.EventUserProfileUpdate, userID, map[string]any{"fields": keys(fields)})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkg.Conflict("username already exists")
		}
		return nil, dbError(err, "user")
	}
	return user, nil
}

// ChangePassword 登录态修改密码，成功后强制重新登录
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if err := requireActor(userID); err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return dbError(err, "user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return pkg.InvalidInput("old password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return pkg.Internal("hash password", err)
	}
	if err := s.store.Users.UpdatePassword(ctx, user, string(hash)); err != nil {
		return dbError(err, "user")
	}
	return s.Logout(ctx, userID)
}
