package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/graylake-systems/graylake/internal/models"
)

// backgroundTypes is what the background stream draws from, weighted so
// most traffic is routine with a sprinkling of failures.
var backgroundTypes = []struct {
	eventType string
	level     string
	weight    int
}{
	{"LOGIN_SUCCESS", models.LevelInfo, 40},
	{"LOGIN_FAILED", models.LevelWarn, 10},
	{"FILE_ACCESS", models.LevelInfo, 20},
	{"CONFIG_CHANGE", models.LevelWarn, 5},
	{"PROCESS_START", models.LevelInfo, 20},
	{"FIREWALL_DENY", models.LevelError, 5},
}

// Seeder sends generated events to an ingest endpoint.
type Seeder struct {
	profile *Profile
	client  *http.Client
	faker   *gofakeit.Faker
}

// New creates a Seeder for the profile.
func New(p *Profile) *Seeder {
	return &Seeder{
		profile: p,
		client:  &http.Client{Timeout: 10 * time.Second},
		faker:   gofakeit.New(0),
	}
}

// Run sends the background stream and then each configured burst.
// Returns the number of events accepted by the server.
func (s *Seeder) Run(ctx context.Context) (int, error) {
	sent := 0

	for i := 0; i < s.profile.Count; i++ {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.send(ctx, s.backgroundEvent()); err != nil {
			return sent, fmt.Errorf("event %d: %w", i+1, err)
		}
		sent++
	}

	for bi, burst := range s.profile.Bursts {
		n, err := s.runBurst(ctx, burst)
		sent += n
		if err != nil {
			return sent, fmt.Errorf("burst %d: %w", bi+1, err)
		}
	}

	return sent, nil
}

func (s *Seeder) runBurst(ctx context.Context, b Burst) (int, error) {
	eventType := b.EventType
	if eventType == "" {
		eventType = models.EventTypeLoginFailed
	}
	count := b.Count
	if count <= 0 {
		count = 6
	}
	ip := b.IP
	if ip == "" {
		ip = s.faker.IPv4Address()
	}
	user := s.faker.Username()

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		req := &models.IngestRequest{
			Source:    "auth-service",
			EventType: eventType,
			Level:     models.LevelWarn,
			IP:        ip,
			User:      user,
			Message:   fmt.Sprintf("Failed password for %s from %s", user, ip),
		}
		if err := s.send(ctx, req); err != nil {
			return i, err
		}
	}
	return count, nil
}

func (s *Seeder) backgroundEvent() *models.IngestRequest {
	total := 0
	for _, t := range backgroundTypes {
		total += t.weight
	}
	pick := rand.Intn(total)
	chosen := backgroundTypes[0]
	for _, t := range backgroundTypes {
		if pick < t.weight {
			chosen = t
			break
		}
		pick -= t.weight
	}

	ts := time.Now().Add(-time.Duration(rand.Int63n(int64(s.profile.Spread) + 1)))
	source := s.profile.Sources[rand.Intn(len(s.profile.Sources))]

	return &models.IngestRequest{
		TS:        ts.UTC().Format(time.RFC3339Nano),
		Source:    source,
		EventType: chosen.eventType,
		Level:     chosen.level,
		IP:        s.faker.IPv4Address(),
		User:      s.faker.Username(),
		Message:   s.faker.HackerPhrase(),
	}
}

func (s *Seeder) send(ctx context.Context, ev *models.IngestRequest) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.profile.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.profile.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
