package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-directory/internal/auth"
	"github.com/iliyamo/restaurant-directory/internal/protocol"
	"github.com/iliyamo/restaurant-directory/internal/repository"
	"github.com/iliyamo/restaurant-directory/internal/utils"
)

// AuthHandler serves the identity commands: register, login, logout, whoami.
// Login is exclusive per identity: the shared registry rejects a second
// session for an id that is already authenticated elsewhere.
type AuthHandler struct {
	Users      UserStore
	Registry   *auth.Registry
	BcryptCost int
}

// NewAuthHandler constructs the handler from its dependencies.
func NewAuthHandler(users UserStore, registry *auth.Registry, bcryptCost int) *AuthHandler {
	return &AuthHandler{Users: users, Registry: registry, BcryptCost: bcryptCost}
}

// Handle claims the identity command tokens.
func (h *AuthHandler) Handle(ctx context.Context, cmd string, s *protocol.Session) (bool, error) {
	switch cmd {
	case "login":
		return true, h.login(ctx, s)
	case "register":
		return true, h.register(ctx, s)
	case "logout":
		return true, h.logout(s)
	case "whoami":
		return true, h.whoami(ctx, s)
	}
	return false, nil
}

func (h *AuthHandler) login(ctx context.Context, s *protocol.Session) error {
	args, err := readArgs(s, 2)
	if err != nil {
		return err
	}
	username, password := args[0], args[1]

	u, err := h.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return s.WriteLine("username")
	}
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return s.WriteLine("password")
	}
	if !h.Registry.TryAcquire(u.ID) {
		// identity is driven from another session; this one stays anonymous
		return s.WriteLine("already_logged_in")
	}
	s.SetUserID(u.ID)
	return s.WriteLine("ok")
}

func (h *AuthHandler) register(ctx context.Context, s *protocol.Session) error {
	args, err := readArgs(s, 8)
	if err != nil {
		return err
	}
	name, surname := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
	username, password := strings.TrimSpace(args[2]), args[3]

	if name == "" || surname == "" || username == "" || password == "" {
		return s.WriteLine("missing")
	}
	if !utils.StrongEnough(password) {
		return s.WriteLine("password")
	}

	var birth *time.Time
	if args[4] != "-" {
		t, err := time.Parse("2006-01-02", args[4])
		if err != nil || t.After(time.Now()) {
			return s.WriteLine("date")
		}
		birth = &t
	}

	lat, latOK := optFloat(args[5])
	lon, lonOK := optFloat(args[6])
	if !latOK || !lonOK || lat == nil || lon == nil {
		return s.WriteLine("coordinates")
	}

	u := repository.User{
		Name:      name,
		Surname:   surname,
		Username:  username,
		BirthDate: birth,
		Latitude:  *lat,
		Longitude: *lon,
		IsOwner:   args[7] == "y",
	}
	u.PasswordHash, err = utils.HashPassword(password, h.BcryptCost)
	if err != nil {
		return err
	}
	if err := h.Users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return s.WriteLine("username_taken")
		}
		return err
	}
	return s.WriteLine("ok")
}

func (h *AuthHandler) logout(s *protocol.Session) error {
	if id := s.UserID(); id != 0 {
		h.Registry.Release(id)
		s.ClearUser()
	}
	return s.WriteLine("ok")
}

func (h *AuthHandler) whoami(ctx context.Context, s *protocol.Session) error {
	id := s.UserID()
	if id == 0 {
		return s.WriteLine("unauthorized")
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	for _, line := range []string{"ok", u.Name, u.Surname, u.Username, yn(u.IsOwner)} {
		if err := s.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}
