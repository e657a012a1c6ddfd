package repository

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	sdklogger "github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/pkg/logger"
	"github.com/okian/eventdex/pkg/metrics"
)

const eventTable = "event"

const schemaSQL = `
DEFINE TABLE IF NOT EXISTS event SCHEMALESS;
DEFINE INDEX IF NOT EXISTS event_post_id ON event FIELDS post_id UNIQUE;
DEFINE INDEX IF NOT EXISTS event_starts_at ON event FIELDS starts_at, post_id;
`

var tlsOnce sync.Once

// SurrealConfig holds SurrealDB connection settings.
type SurrealConfig struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"
}

// SurrealStore is the durable Store backed by SurrealDB. Each write is one
// UPSERT or DELETE statement, so a record is replaced atomically.
type SurrealStore struct {
	conn *rews.Connection[*gorillaws.Connection]
	db   *surrealdb.DB
	log  logger.Logger
}

// eventRow is the stored shape. The coordinate is split so it can be null.
type eventRow struct {
	PostID       int64     `json:"post_id"`
	TopicID      int64     `json:"topic_id"`
	CategoryID   int64     `json:"category_id"`
	Visibility   string    `json:"visibility"`
	Title        string    `json:"title"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Timezone     string    `json:"timezone"`
	LocationName string    `json:"location_name"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Zip          string    `json:"zip"`
	Country      string    `json:"country"`
	Lat          *float64  `json:"lat"`
	Lng          *float64  `json:"lng"`
	ExternalURL  string    `json:"external_url"`
	GraphicURL   string    `json:"graphic_url"`
	IndexedAt    time.Time `json:"indexed_at"`
}

func rowFrom(rec model.EventRecord) eventRow {
	row := eventRow{
		PostID:       rec.PostID,
		TopicID:      rec.TopicID,
		CategoryID:   rec.CategoryID,
		Visibility:   rec.Visibility,
		Title:        rec.Title,
		StartsAt:     rec.StartsAt.UTC(),
		EndsAt:       rec.EndsAt.UTC(),
		Timezone:     rec.Timezone,
		LocationName: rec.LocationName,
		Address:      rec.Address,
		City:         rec.City,
		State:        rec.State,
		Zip:          rec.Zip,
		Country:      rec.Country,
		ExternalURL:  rec.ExternalURL,
		GraphicURL:   rec.GraphicURL,
		IndexedAt:    rec.IndexedAt.UTC(),
	}
	if rec.Coordinate != nil {
		lat, lng := rec.Coordinate.Lat, rec.Coordinate.Lng
		row.Lat, row.Lng = &lat, &lng
	}
	return row
}

// record converts a row back, restoring the event's own zone for the window.
func (r eventRow) record() model.EventRecord {
	rec := model.EventRecord{
		PostID:       r.PostID,
		TopicID:      r.TopicID,
		CategoryID:   r.CategoryID,
		Visibility:   r.Visibility,
		Title:        r.Title,
		StartsAt:     r.StartsAt,
		EndsAt:       r.EndsAt,
		Timezone:     r.Timezone,
		LocationName: r.LocationName,
		Address:      r.Address,
		City:         r.City,
		State:        r.State,
		Zip:          r.Zip,
		Country:      r.Country,
		ExternalURL:  r.ExternalURL,
		GraphicURL:   r.GraphicURL,
		IndexedAt:    r.IndexedAt.UTC(),
	}
	if loc, err := time.LoadLocation(r.Timezone); err == nil && r.Timezone != "" {
		rec.StartsAt = rec.StartsAt.In(loc)
		rec.EndsAt = rec.EndsAt.In(loc)
	}
	if r.Lat != nil && r.Lng != nil {
		rec.Coordinate = &model.Coordinate{Lat: *r.Lat, Lng: *r.Lng}
	}
	return rec
}

// NewSurrealStore connects with an auto-reconnecting WebSocket, signs in,
// selects the namespace and database, and ensures the schema.
func NewSurrealStore(ctx context.Context, cfg SurrealConfig, log logger.Logger) (*SurrealStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	tlsOnce.Do(func() {
		// WebSocket upgrade needs HTTP/1.1; stop ALPN from picking h2.
		gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{NextProtos: []string{"http/1.1"}}
	})

	sdkLog := sdklogger.New(logger.Handler())
	codec := surrealcbor.New()
	// gorillaws appends /rpc itself.
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			return gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLog,
			}), nil
		},
		5*time.Second,
		codec,
		sdkLog,
	)
	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	log.Info(ctx, "connecting to SurrealDB", logger.String("url", cfg.URL))
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	auth := surrealdb.Auth{Username: cfg.Username, Password: cfg.Password}
	if cfg.AuthLevel == "database" {
		auth.Namespace = cfg.Namespace
		auth.Database = cfg.Database
	}
	if _, err := db.SignIn(ctx, auth); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin: %w", err)
	}
	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use: %w", err)
	}
	if _, err := surrealdb.Query[any](ctx, db, schemaSQL, nil); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("init schema: %w", err)
	}

	log.Info(ctx, "SurrealDB store ready",
		logger.String("namespace", cfg.Namespace),
		logger.String("database", cfg.Database))
	return &SurrealStore{conn: conn, db: db, log: log}, nil
}

// Close closes the connection.
func (s *SurrealStore) Close() error {
	return s.conn.Close(context.Background())
}

// Upsert implements Store.Upsert.
func (s *SurrealStore) Upsert(ctx context.Context, rec model.EventRecord) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := Validate(rec); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_record")
		return err
	}
	_, err := surrealdb.Query[any](ctx, s.db,
		`UPSERT type::record($tb, $id) CONTENT $rec RETURN NONE`,
		map[string]any{"tb": eventTable, "id": rec.PostID, "rec": rowFrom(rec)})
	if err != nil {
		metrics.RecordErrorByComponent("repository", "backend")
		return fmt.Errorf("upsert event %d: %w", rec.PostID, err)
	}
	return nil
}

// Delete implements Store.Delete.
func (s *SurrealStore) Delete(ctx context.Context, postID int64) (bool, error) {
	res, err := surrealdb.Query[[]eventRow](ctx, s.db,
		`DELETE type::record($tb, $id) RETURN BEFORE`,
		map[string]any{"tb": eventTable, "id": postID})
	if err != nil {
		metrics.RecordErrorByComponent("repository", "backend")
		return false, fmt.Errorf("delete event %d: %w", postID, err)
	}
	return res != nil && len(*res) > 0 && len((*res)[0].Result) > 0, nil
}

// Get implements Store.Get.
func (s *SurrealStore) Get(ctx context.Context, postID int64) (model.EventRecord, error) {
	res, err := surrealdb.Query[[]eventRow](ctx, s.db,
		`SELECT * OMIT id FROM type::record($tb, $id)`,
		map[string]any{"tb": eventTable, "id": postID})
	if err != nil {
		return model.EventRecord{}, fmt.Errorf("get event %d: %w", postID, err)
	}
	if res == nil || len(*res) == 0 || len((*res)[0].Result) == 0 {
		return model.EventRecord{}, ErrNotFound
	}
	return (*res)[0].Result[0].record(), nil
}

// Query implements Store.Query.
func (s *SurrealStore) Query(ctx context.Context, q Query) ([]model.EventRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := validateQuery(q); err != nil {
		return nil, err
	}

	var where []string
	vars := map[string]any{"limit": q.Limit}
	if q.Visibility != "" {
		where = append(where, "visibility = $visibility")
		vars["visibility"] = q.Visibility
	}
	if q.After != nil {
		where = append(where, "starts_at >= $after")
		vars["after"] = q.After.UTC()
	}
	sql := "SELECT * OMIT id FROM event"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY starts_at ASC, post_id ASC LIMIT $limit"

	res, err := surrealdb.Query[[]eventRow](ctx, s.db, sql, vars)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "backend")
		return nil, fmt.Errorf("query events: %w", err)
	}
	if res == nil || len(*res) == 0 {
		return []model.EventRecord{}, nil
	}
	rows := (*res)[0].Result
	out := make([]model.EventRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// Count implements Store.Count.
func (s *SurrealStore) Count(ctx context.Context) (int, error) {
	res, err := surrealdb.Query[[]struct {
		C int `json:"c"`
	}](ctx, s.db, `SELECT count() AS c FROM event GROUP ALL`, nil)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	if res == nil || len(*res) == 0 || len((*res)[0].Result) == 0 {
		return 0, nil
	}
	n := (*res)[0].Result[0].C
	metrics.UpdateIndexRecords(n)
	return n, nil
}

// Wipe deletes every event.
func (s *SurrealStore) Wipe(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, `DELETE event`, nil); err != nil {
		return fmt.Errorf("wipe events: %w", err)
	}
	return nil
}
