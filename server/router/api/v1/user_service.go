package v1

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/t3clone/t3chat/plugin/ai"
	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/store"
)

const (
	maxCustomInstructionsRunes = 4000
	maxDisplayNameRunes        = 64
	maxAvatarURLLength         = 2048
)

var (
	usernameMatcher = regexp.MustCompile("^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,30}[a-zA-Z0-9])?$")
	themes          = map[string]bool{"system": true, "light": true, "dark": true}
)

// GetUserSetting returns the settings of the user, or the defaults.
// GET /api/settings
func (s *APIV1Service) GetUserSetting(c echo.Context) error {
	setting, err := s.userSetting(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertUserSettingFromStore(setting))
}

type updateUserSettingRequest struct {
	DefaultModel        *string `json:"defaultModel"`
	Theme               *string `json:"theme"`
	CustomInstructions  *string `json:"customInstructions"`
	AutocompleteEnabled *bool   `json:"autocompleteEnabled"`
}

// UpdateUserSetting merges the given fields into the stored settings.
// PUT /api/settings
func (s *APIV1Service) UpdateUserSetting(c echo.Context) error {
	var req updateUserSettingRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, err)
	}
	setting, err := s.userSetting(c)
	if err != nil {
		return writeError(c, err)
	}
	if req.DefaultModel != nil {
		model := strings.TrimSpace(*req.DefaultModel)
		if model != "" {
			if _, ok := ai.LookupModel(model); !ok {
				return writeError(c, apperrors.InvalidArgument("unknown model: "+model))
			}
		}
		setting.DefaultModel = model
	}
	if req.Theme != nil {
		if !themes[*req.Theme] {
			return writeError(c, apperrors.InvalidArgument("theme must be one of system, light, dark"))
		}
		setting.Theme = *req.Theme
	}
	if req.CustomInstructions != nil {
		if utf8.RuneCountInString(*req.CustomInstructions) > maxCustomInstructionsRunes {
			return writeError(c, apperrors.InvalidArgument("custom instructions are too long"))
		}
		setting.CustomInstructions = *req.CustomInstructions
	}
	if req.AutocompleteEnabled != nil {
		setting.AutocompleteEnabled = *req.AutocompleteEnabled
	}

	updated, err := s.Store.UpsertUserSetting(c.Request().Context(), setting)
	if err != nil {
		return writeError(c, apperrors.Internal("failed to update settings", err))
	}
	return c.JSON(http.StatusOK, convertUserSettingFromStore(updated))
}

func (s *APIV1Service) userSetting(c echo.Context) (*store.UserSetting, error) {
	userID := currentUserID(c)
	setting, err := s.Store.GetUserSetting(c.Request().Context(), &store.FindUserSetting{UserID: userID})
	if err != nil {
		return nil, apperrors.Internal("failed to get settings", err)
	}
	if setting == nil {
		setting = store.DefaultUserSetting(userID)
	}
	return setting, nil
}

// GetUserProfile returns the profile of the user. Users without a stored
// profile get an empty one carrying their id.
// GET /api/profile
func (s *APIV1Service) GetUserProfile(c echo.Context) error {
	p, err := s.userProfile(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertUserProfileFromStore(p))
}

type updateUserProfileRequest struct {
	Username    *string `json:"username"`
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

// UpdateUserProfile merges the given fields into the stored profile.
// PUT /api/profile
func (s *APIV1Service) UpdateUserProfile(c echo.Context) error {
	var req updateUserProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, err)
	}
	p, err := s.userProfile(c)
	if err != nil {
		return writeError(c, err)
	}
	if req.Username != nil {
		if *req.Username != "" && !usernameMatcher.MatchString(*req.Username) {
			return writeError(c, apperrors.InvalidArgument("invalid username"))
		}
		p.Username = *req.Username
	}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if utf8.RuneCountInString(name) > maxDisplayNameRunes {
			return writeError(c, apperrors.InvalidArgument("display name is too long"))
		}
		p.DisplayName = name
	}
	if req.AvatarURL != nil {
		url := strings.TrimSpace(*req.AvatarURL)
		if len(url) > maxAvatarURLLength || (url != "" && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://")) {
			return writeError(c, apperrors.InvalidArgument("invalid avatar url"))
		}
		p.AvatarURL = url
	}

	updated, err := s.Store.UpsertUserProfile(c.Request().Context(), p)
	if err != nil {
		return writeError(c, apperrors.Internal("failed to update profile", err))
	}
	return c.JSON(http.StatusOK, convertUserProfileFromStore(updated))
}

func (s *APIV1Service) userProfile(c echo.Context) (*store.UserProfile, error) {
	userID := currentUserID(c)
	p, err := s.Store.GetUserProfile(c.Request().Context(), &store.FindUserProfile{ID: userID})
	if err != nil {
		return nil, apperrors.Internal("failed to get profile", err)
	}
	if p == nil {
		p = &store.UserProfile{ID: userID}
	}
	return p, nil
}
