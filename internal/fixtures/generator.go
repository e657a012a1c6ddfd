// Package fixtures generates synthetic forum posts for local runs and load
// checks of the indexer.
package fixtures

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/okian/eventdex/internal/adapters/source"
	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/pkg/logger"
)

// Kind labels the shape of a generated post.
type Kind int

// Post shapes produced by the generator, in rotation.
const (
	KindPublicDate Kind = iota
	KindPublicRange
	KindVirtual
	KindMembersOnly
	KindHiddenThread
	KindDeleted
	kindCount
)

// Config controls generation.
type Config struct {
	Count   int
	StartID int64
	Seed    uint64
	// Base is the earliest event day; events fall within 90 days after it.
	Base time.Time
}

var venues = []struct {
	name, address, city, zip string
}{
	{"Discovery Green", "1500 McKinney St", "Houston", "77010"},
	{"Central Library", "710 W Cesar Chavez St", "Austin", "78701"},
	{"Fair Park", "3809 Grand Ave", "Dallas", "75210"},
	{"Hemisfair", "434 S Alamo St", "San Antonio", "78205"},
	{"Cameron Park", "2601 N University Parks Dr", "Waco", "76708"},
}

var topics = []string{"Community Potluck", "Park Cleanup", "Town Hall", "Voter Registration Drive", "Book Swap", "Blood Drive"}

var zones = []string{"America/Chicago", "America/Denver", ""}

// Generate returns cfg.Count documents with ids from cfg.StartID. The same
// config always yields the same documents.
func Generate(cfg Config) []model.SourceDocument {
	if cfg.StartID < 1 {
		cfg.StartID = 1
	}
	if cfg.Base.IsZero() {
		cfg.Base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	docs := make([]model.SourceDocument, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		id := cfg.StartID + int64(i)
		docs = append(docs, generateSingle(rng, id, Kind(i%int(kindCount)), cfg.Base))
	}
	return docs
}

func generateSingle(rng *rand.Rand, id int64, kind Kind, base time.Time) model.SourceDocument {
	v := venues[rng.IntN(len(venues))]
	title := topics[rng.IntN(len(topics))]
	day := base.AddDate(0, 0, rng.IntN(90))
	hour := 8 + rng.IntN(12)
	zone := zones[rng.IntN(len(zones))]

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", title)
	switch kind {
	case KindPublicRange:
		end := day.Add(time.Duration(hour+2) * time.Hour)
		fmt.Fprintf(&b, "[date-range from=%sT%02d:00:00 to=%s%s]\n",
			day.Format("2006-01-02"), hour, end.Format("2006-01-02T15:04:05"), zoneAttr(zone))
	default:
		fmt.Fprintf(&b, "[date=%s time=%02d%02d00%s]\n", day.Format("2006-01-02"), hour, 15*rng.IntN(4), zoneAttr(zone))
	}
	b.WriteString("## Event Details\n")
	if kind == KindVirtual {
		b.WriteString("- **Location:** Online\n")
	} else {
		fmt.Fprintf(&b, "- **Location:** %s\n- **Address:** %s\n- **City:** %s\n- **Zip Code:** %s\n",
			v.name, v.address, v.city, v.zip)
	}
	visibility := "Public"
	if kind == KindMembersOnly {
		visibility = "Members"
	}
	fmt.Fprintf(&b, "- Visibility: %s\n- Link: https://example.org/events/%d\n", visibility, id)

	return model.SourceDocument{
		ID:        id,
		Body:      b.String(),
		CreatedAt: day.AddDate(0, 0, -7),
		Deleted:   kind == KindDeleted,
		Thread: model.Thread{
			ID:         1000 + id,
			Title:      title,
			CategoryID: 1 + int64(rng.IntN(3)),
			Visible:    kind != KindHiddenThread,
		},
	}
}

func zoneAttr(zone string) string {
	if zone == "" {
		return ""
	}
	return fmt.Sprintf(` timezone="%s"`, zone)
}

// WriteDir writes docs into dir as YAML documents readable by
// source.DirSource.
func WriteDir(ctx context.Context, dir string, docs []model.SourceDocument, log logger.Logger) error {
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled during fixture write: %w", err)
		}
		if _, err := source.WriteDocumentFile(dir, d); err != nil {
			return err
		}
	}
	log.Info(ctx, "generated posts", logger.Int("count", len(docs)), logger.String("dir", dir))
	return nil
}
