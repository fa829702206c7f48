package credauth

import (
	"context"
	"errors"
	"fmt"
)

// SeedUser is one account to provision at bootstrap.
type SeedUser struct {
	Username string `koanf:"username" yaml:"username"`
	Password string `koanf:"password" yaml:"password"`
	FullName string `koanf:"full_name" yaml:"full_name"`
}

// SeedReport counts what [Engine.Seed] did.
type SeedReport struct {
	Created []string
	Skipped []string
}

// DefaultSeedUsers returns the development account provisioned when no seed
// list is configured.
func DefaultSeedUsers() []SeedUser {
	return []SeedUser{{Username: "bob", Password: "Bob123"}}
}

// Seed registers users in order. Accounts that already exist are skipped,
// so seeding is safe to repeat. Any other failure stops the run and is
// returned together with what was done so far.
func (e *Engine) Seed(ctx context.Context, users []SeedUser) (SeedReport, error) {
	var report SeedReport
	if !e.ready() {
		return report, ErrEngineNotReady
	}

	for _, u := range users {
		rec, err := e.Register(ctx, RegisterRequest{
			Username: u.Username,
			Password: u.Password,
			FullName: u.FullName,
		})
		if errors.Is(err, ErrDuplicateUsername) {
			e.metricInc(MetricSeedSkipped)
			e.logger.InfoContext(ctx, "seed user already exists, skipping", "username", u.Username)
			report.Skipped = append(report.Skipped, u.Username)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		e.logger.InfoContext(ctx, "seed user created", "username", rec.Username, "user_id", rec.ID)
		report.Created = append(report.Created, rec.Username)
	}
	return report, nil
}
