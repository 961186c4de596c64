package seeding

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/appetiteclub/dinein/internal/authn"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/menu"
	"github.com/appetiteclub/dinein/internal/tables"
)

const application = "dinein"

//go:embed seed.json
var seedFS embed.FS

type document struct {
	Users  []userSeed  `json:"users"`
	Tables []tableSeed `json:"tables"`
	Menu   []menu.Item `json:"menu"`
}

type userSeed struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     authn.Role `json:"role"`
	Name     string     `json:"name"`
}

type tableSeed struct {
	Number   int `json:"number"`
	Capacity int `json:"capacity"`
}

func load() (*document, error) {
	raw, err := seedFS.ReadFile("seed.json")
	if err != nil {
		return nil, fmt.Errorf("read seed.json: %w", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode seed.json: %w", err)
	}
	if len(doc.Tables) == 0 || len(doc.Menu) == 0 {
		return nil, errors.New("seed file has no tables or menu")
	}
	return &doc, nil
}

type Deps struct {
	Tables  *tables.Registry
	Menu    *menu.Service
	Users   *authn.Service
	Tracker seed.Tracker
}

// Seeder loads the demo restaurant: staff accounts, tables and the menu.
type Seeder struct {
	tables  *tables.Registry
	menu    *menu.Service
	users   *authn.Service
	tracker seed.Tracker
	logger  apt.Logger
	doc     *document
}

func NewSeeder(deps Deps, logger apt.Logger) (*Seeder, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	doc, err := load()
	if err != nil {
		return nil, err
	}
	return &Seeder{
		tables:  deps.Tables,
		menu:    deps.Menu,
		users:   deps.Users,
		tracker: deps.Tracker,
		logger:  logger,
		doc:     doc,
	}, nil
}

// Seeds lists the demo seeds in application order.
func (s *Seeder) Seeds() []seed.Seed {
	return []seed.Seed{
		{ID: "2025-01-demo-users", Description: "Demo staff and customer accounts", Run: s.seedUsers},
		{ID: "2025-01-demo-tables", Description: "Twelve dining tables", Run: s.seedTables},
		{ID: "2025-01-demo-menu", Description: "Demo menu catalog", Run: s.seedMenu},
	}
}

// Apply runs the seeds that have not run yet.
func (s *Seeder) Apply(ctx context.Context) error {
	if err := seed.Apply(ctx, s.tracker, s.Seeds(), application); err != nil {
		return err
	}
	s.logger.Info("demo seeds applied")
	return nil
}

// Force runs every seed again regardless of the tracker. Tables that
// already exist are left as they are, so open sessions survive.
func (s *Seeder) Force(ctx context.Context) error {
	for _, sd := range s.Seeds() {
		if err := sd.Run(ctx); err != nil {
			return fmt.Errorf("seed %s failed: %w", sd.ID, err)
		}

		ran, err := s.tracker.HasRun(ctx, sd.ID)
		if err != nil {
			return err
		}
		if ran {
			continue
		}
		rec := seed.Record{ID: sd.ID, Application: application, Description: sd.Description, AppliedAt: time.Now().UTC()}
		if err := s.tracker.MarkRun(ctx, rec); err != nil {
			return err
		}
	}
	s.logger.Info("demo seeds re-applied")
	return nil
}

// Status reports whether every seed ran and what accounts exist.
type Status struct {
	Initialized bool            `json:"initialized"`
	UserCount   int             `json:"userCount"`
	Users       []authn.Profile `json:"users"`
	TableCount  int             `json:"tableCount"`
	MenuCount   int             `json:"menuCount"`
}

func (s *Seeder) Status(ctx context.Context) (*Status, error) {
	st := &Status{Initialized: true}
	for _, sd := range s.Seeds() {
		ran, err := s.tracker.HasRun(ctx, sd.ID)
		if err != nil {
			return nil, err
		}
		st.Initialized = st.Initialized && ran
	}

	users, err := s.users.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	st.Users = users
	st.UserCount = len(users)

	tbls, err := s.tables.List(ctx)
	if err != nil {
		return nil, err
	}
	st.TableCount = len(tbls)

	items, err := s.menu.List(ctx)
	if err != nil {
		return nil, err
	}
	st.MenuCount = len(items)
	return st, nil
}

func (s *Seeder) seedUsers(ctx context.Context) error {
	for _, us := range s.doc.Users {
		u, err := authn.NewUser(us.ID, us.Email, us.Name, us.Role, us.Password)
		if err != nil {
			return err
		}
		if err := s.users.Save(ctx, u); err != nil {
			return err
		}
	}
	s.logger.Info("seeded users", "count", len(s.doc.Users))
	return nil
}

func (s *Seeder) seedTables(ctx context.Context) error {
	created := 0
	for _, ts := range s.doc.Tables {
		_, err := s.tables.Add(ctx, ts.Number, ts.Capacity)
		switch {
		case errors.Is(err, core.ErrConflict):
			continue
		case err != nil:
			return err
		}
		created++
	}
	s.logger.Info("seeded tables", "created", created)
	return nil
}

func (s *Seeder) seedMenu(ctx context.Context) error {
	now := time.Now().UTC()
	for i := range s.doc.Menu {
		item := s.doc.Menu[i]
		if err := item.Validate(); err != nil {
			return err
		}
		item.CreatedAt = now
		if err := s.menu.Put(ctx, &item); err != nil {
			return err
		}
	}
	s.logger.Info("seeded menu", "count", len(s.doc.Menu))
	return nil
}

// SeedingFunc returns a lifecycle OnStart hook that applies the seeds in the
// background, so a slow backend does not delay startup.
func SeedingFunc(seedCtx context.Context, s *Seeder, logger apt.Logger) func(ctx context.Context) error {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return func(ctx context.Context) error {
		go func() {
			if err := s.Apply(seedCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("demo seeds failed: %v", err)
			}
		}()
		return nil
	}
}

// StopFunc returns a lifecycle OnStop hook that cancels background seeding.
func StopFunc(cancel context.CancelFunc) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if cancel != nil {
			cancel()
		}
		return nil
	}
}
