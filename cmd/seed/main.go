// Command seed fills an OxiDB instance with demo organizations, volunteers,
// jobs and applications.
//
// Usage:
//
//	go run ./cmd/seed                       # OxiDB address from config
//	go run ./cmd/seed -addr 10.0.0.5:4444 -orgs 20 -volunteers 200
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/slmes-creator/job-posting/internal/cache"
	"github.com/slmes-creator/job-posting/internal/config"
	"github.com/slmes-creator/job-posting/internal/db"
	"github.com/slmes-creator/job-posting/internal/events"
	"github.com/slmes-creator/job-posting/internal/mail"
	"github.com/slmes-creator/job-posting/internal/models"
	"github.com/slmes-creator/job-posting/internal/repository"
	"github.com/slmes-creator/job-posting/internal/service"
)

const password = "volunteer123"

var (
	orgNames   = []string{"City Food Bank", "Green Parks Trust", "Paws Rescue", "Reading Buddies", "Harbor Seniors Center", "Red Cross Chapter", "Youth Soccer League", "River Cleanup Crew"}
	firstNames = []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Hank", "Ivy", "Jack", "Karen", "Leo", "Mona", "Nick", "Olivia", "Paul"}
	lastNames  = []string{"Smith", "Johnson", "Garcia", "Miller", "Davis", "Martinez", "Wilson", "Lee", "Harris", "Clark"}
	schools    = []string{"North High", "Central High", "Westview Academy", "Lakeside Prep"}
	cities     = []string{"Springfield", "Riverton", "Lakewood", "Fairview", "Remote"}
	tasks      = []string{"Pantry Helper", "Tree Planting", "Dog Walking", "Reading Tutor", "Bingo Host", "Blood Drive Greeter", "Coach Assistant", "Beach Cleanup"}
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config: %v\n", err)
		os.Exit(1)
	}
	addr := flag.String("addr", cfg.OxiDBAddr, "OxiDB server address")
	orgs := flag.Int("orgs", 5, "organizations to create")
	volunteers := flag.Int("volunteers", 30, "volunteers to create")
	jobsPerOrg := flag.Int("jobs", 4, "open jobs per organization")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	pool, err := db.NewPool(ctx, *addr, 1, quiet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: connect failed: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()
	fmt.Printf("Connected to %s\n\n", *addr)

	users := repository.NewUserRepo(pool)
	jobs := repository.NewJobRepo(pool)
	apps := repository.NewApplicationRepo(pool)
	resumes := repository.NewResumeRepo(pool)
	for _, step := range []func(context.Context) error{users.EnsureIndexes, jobs.EnsureIndexes, apps.EnsureIndexes, resumes.EnsureIndexes, resumes.EnsureBucket} {
		if err := step(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: storage init: %v\n", err)
			os.Exit(1)
		}
	}

	authSvc := service.NewAuthService(users, cache.NewMemoryRevocationStore(), cfg.JWTSecret, cfg.TokenTTL, quiet)
	jobSvc := service.NewJobService(jobs, apps, users, quiet)
	appSvc := service.NewApplicationService(apps, jobs, users,
		service.NewResumeService(resumes, apps, cfg.ResumeMaxBytes),
		mail.NewMailer("", "", nil), events.NewLoggingPublisher(quiet), quiet)

	rng := rand.New(rand.NewSource(*seed))
	start := time.Now()

	section("Organizations")
	orgIDs := make([]string, 0, *orgs)
	for i := 0; i < *orgs; i++ {
		name := orgNames[i%len(orgNames)]
		if i >= len(orgNames) {
			name = fmt.Sprintf("%s %d", name, i/len(orgNames)+1)
		}
		id, err := account(ctx, authSvc, service.RegisterInput{
			Email:            fmt.Sprintf("org%d@volunteer-hub.test", i),
			Password:         password,
			Role:             models.RoleOrganization,
			OrganizationName: name,
			Description:      "Demo organization",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: organization %d: %v\n", i, err)
			os.Exit(1)
		}
		orgIDs = append(orgIDs, id)
	}
	fmt.Printf("  %d organizations\n", len(orgIDs))

	section("Jobs")
	var jobIDs []string
	for _, orgID := range orgIDs {
		for j := 0; j < *jobsPerOrg; j++ {
			city := cities[rng.Intn(len(cities))]
			job, err := jobSvc.Create(ctx, orgID, service.JobInput{
				Title:         tasks[rng.Intn(len(tasks))],
				Description:   "Help out at our next community event.",
				Location:      city,
				IsRemote:      city == "Remote",
				Date:          time.Now().AddDate(0, 0, 7+rng.Intn(60)).Format("2006-01-02"),
				Time:          fmt.Sprintf("%02d:00", 8+rng.Intn(10)),
				HoursOffered:  float64(1 + rng.Intn(6)),
				MaxVolunteers: 2 + rng.Intn(10),
				Category:      models.JobCategories[rng.Intn(len(models.JobCategories))],
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "FATAL: job for %s: %v\n", orgID, err)
				os.Exit(1)
			}
			jobIDs = append(jobIDs, job.ID)
		}
	}
	fmt.Printf("  %d jobs\n", len(jobIDs))

	section("Volunteers and applications")
	applied := 0
	for i := 0; i < *volunteers; i++ {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		id, err := account(ctx, authSvc, service.RegisterInput{
			Email:    fmt.Sprintf("%s.%s.%d@volunteer-hub.test", strings.ToLower(first), strings.ToLower(last), i),
			Password: password,
			Role:     models.RoleVolunteer,
			FullName: first + " " + last,
			School:   schools[rng.Intn(len(schools))],
			Grade:    9 + rng.Intn(4),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: volunteer %d: %v\n", i, err)
			os.Exit(1)
		}
		if len(jobIDs) == 0 {
			continue
		}
		for _, k := range rng.Perm(len(jobIDs))[:min(2, len(jobIDs))] {
			_, err := appSvc.Submit(ctx, id, jobIDs[k], service.ApplyInput{
				CoverLetter:  "I would love to help.",
				Availability: "Weekends",
			}, nil)
			if err != nil && !errors.Is(err, service.ErrConflict) {
				fmt.Fprintf(os.Stderr, "  ✗ application: %v\n", err)
				continue
			}
			applied++
		}
	}
	fmt.Printf("  %d volunteers, %d applications\n", *volunteers, applied)

	fmt.Printf("\nDone in %s. Every account uses password %q.\n", time.Since(start).Round(time.Millisecond), password)
}

// account registers an account, or logs into it when a previous run already
// created it.
func account(ctx context.Context, svc *service.AuthService, in service.RegisterInput) (string, error) {
	res, err := svc.Register(ctx, in)
	if errors.Is(err, service.ErrConflict) {
		res, err = svc.Login(ctx, in.Email, in.Password)
	}
	if err != nil {
		return "", err
	}
	return res.User.ID, nil
}

func section(title string) {
	fmt.Printf("━━━ %s ━━━\n", title)
}
