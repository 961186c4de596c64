package authn

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	authpkg "github.com/appetiteclub/apt/auth"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/google/uuid"
)

const (
	audience   = "dinein"
	defaultTTL = 12 * time.Hour
)

type Config struct {
	// Enforce turns on caller classification. When false every request is
	// treated as staff.
	Enforce bool
	TTL     time.Duration
	// SigningSeed is a hex encoded ed25519 seed. A random key is generated
	// when empty, so tokens do not survive a restart.
	SigningSeed string
}

// ConfigFrom reads the auth.* keys.
func ConfigFrom(config *apt.Config) Config {
	cfg := Config{TTL: defaultTTL}
	if config == nil {
		return cfg
	}
	cfg.Enforce = config.GetBoolOrFalse("auth.enforce")
	cfg.TTL = config.GetDurationOrDef("auth.token.ttl", defaultTTL)
	cfg.SigningSeed = config.GetStringOrDef("auth.signing.seed", "")
	return cfg
}

// Login is the result of a successful sign in.
type Login struct {
	User      Profile   `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// Service looks up credentials and issues and verifies bearer tokens.
type Service struct {
	store   store.Store
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	ttl     time.Duration
	enforce bool
	logger  apt.Logger
}

func NewService(s store.Store, cfg Config, logger apt.Logger) (*Service, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	private, err := signingKey(cfg.SigningSeed)
	if err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Service{
		store:   s,
		private: private,
		public:  private.Public().(ed25519.PublicKey),
		ttl:     ttl,
		enforce: cfg.Enforce,
		logger:  logger,
	}, nil
}

func signingKey(seed string) (ed25519.PrivateKey, error) {
	if seed == "" {
		_, private, err := authpkg.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("generate key pair: %w", err)
		}
		return private, nil
	}

	raw, err := hex.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("decode signing seed: %w", err)
	}
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing seed must be %d bytes, got %d", ed25519.SeedSize, len(raw))
	}
	return ed25519.NewKeyFromSeed(raw), nil
}

// Enforced reports whether callers are classified from their tokens.
func (s *Service) Enforced() bool {
	return s.enforce
}

// Save stores u, replacing any user with the same email.
func (s *Service) Save(ctx context.Context, u *User) error {
	if err := store.SetJSON(ctx, s.store, Key(u.Email), u); err != nil {
		return fmt.Errorf("cannot save user %s: %w", u.Email, err)
	}
	return nil
}

// Find returns nil when no user has email.
func (s *Service) Find(ctx context.Context, email string) (*User, error) {
	u, err := store.GetJSON[User](ctx, s.store, Key(email))
	if err != nil {
		return nil, fmt.Errorf("cannot get user: %w", err)
	}
	return u, nil
}

// Profiles lists every user without secrets, ordered by email.
func (s *Service) Profiles(ctx context.Context) ([]Profile, error) {
	entries, err := store.ScanJSON[User](ctx, s.store, store.UserPrefix)
	if err != nil {
		return nil, fmt.Errorf("cannot list users: %w", err)
	}
	out := make([]Profile, 0, len(entries))
	for i := range entries {
		out = append(out, entries[i].Value.Profile())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// Login checks the credentials and issues a token carrying the user's role.
func (s *Service) Login(ctx context.Context, email, password string) (*Login, error) {
	u, err := s.Find(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Verify(password) {
		return nil, fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)
	}

	claims := map[string]string{
		"role":  string(u.Role),
		"email": u.Email,
	}
	token, err := authpkg.GenerateInternalToken(u.ID, uuid.NewString(), audience, claims, s.private, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info("user signed in", "email", u.Email, "role", u.Role)
	return &Login{
		User:      u.Profile(),
		Token:     token,
		ExpiresAt: time.Now().Add(s.ttl).UTC(),
	}, nil
}

// Verify checks the signature, audience and expiry of token.
func (s *Service) Verify(token string) (*Identity, error) {
	claims, err := authpkg.VerifyPASETOToken(token, s.public)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), core.ErrUnauthorized)
	}
	if errs := authpkg.ValidateTokenForService(*claims, audience, time.Now()); errs.HasErrors() {
		return nil, fmt.Errorf("%s: %w", errs.Error(), core.ErrUnauthorized)
	}
	return &Identity{
		UserID: claims.Subject,
		Email:  claims.Context["email"],
		Role:   Role(claims.Context["role"]),
	}, nil
}

// Classify decides whether r comes from staff or a guest. Without
// enforcement everyone is staff; with it only a valid staff token is.
func (s *Service) Classify(r *http.Request) (core.Caller, *Identity) {
	if !s.enforce {
		return core.CallerStaff, nil
	}

	token := bearer(r)
	if token == "" {
		return core.CallerGuest, nil
	}
	id, err := s.Verify(token)
	if err != nil {
		s.logger.Debug("rejected bearer token", "error", err)
		return core.CallerGuest, nil
	}
	if id.Role.Staff() {
		return core.CallerStaff, id
	}
	return core.CallerGuest, id
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
