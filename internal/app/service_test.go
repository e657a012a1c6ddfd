package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/eventdex/internal/adapters/repository"
	"github.com/okian/eventdex/internal/adapters/source"
	service "github.com/okian/eventdex/internal/app"
	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/internal/domain/normalize"
	"github.com/okian/eventdex/internal/domain/temporal"
	. "github.com/smartystreets/goconvey/convey"
)

const publicBody = `Community Potluck
[date=2025-06-01 time=0900 timezone="America/Chicago"]
- **Address:** 100 Main St
- **City:** Austin
- Visibility: Public`

const privateBody = `Board Meeting
[date=2025-06-02 time=1800]
Visibility: Members`

type fixedGeocoder struct {
	mu    sync.Mutex
	calls int
}

func (g *fixedGeocoder) Resolve(ctx context.Context, q string) *model.Coordinate {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return &model.Coordinate{Lat: 30.27, Lng: -97.74}
}

// flakyStore fails upserts for selected ids.
type flakyStore struct {
	repository.Store
	mu     sync.Mutex
	failOn map[int64]bool
}

func (f *flakyStore) Upsert(ctx context.Context, rec model.EventRecord) error {
	f.mu.Lock()
	fail := f.failOn[rec.PostID]
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.Store.Upsert(ctx, rec)
}

func (f *flakyStore) fail(id int64, on bool) {
	f.mu.Lock()
	f.failOn[id] = on
	f.mu.Unlock()
}

func doc(id int64, body string) model.SourceDocument {
	return model.SourceDocument{
		ID:        id,
		Body:      body,
		CreatedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		Thread:    model.Thread{ID: id * 10, CategoryID: 3, Visible: true},
	}
}

type fixture struct {
	src   *source.MemorySource
	store *flakyStore
	geo   *fixedGeocoder
	norm  *normalize.Normalizer
	svc   *service.Service
}

func newFixture(opts ...service.Option) *fixture {
	f := &fixture{
		src:   source.NewMemorySource(),
		store: &flakyStore{Store: repository.NewTreapStore(context.Background()), failOn: map[int64]bool{}},
		geo:   &fixedGeocoder{},
	}
	norm := normalize.New(temporal.NewResolver(time.UTC), f.geo,
		normalize.Region{DefaultState: "TX", DefaultCountry: "USA"})
	f.norm = norm
	f.svc = service.New(f.src, norm, f.store, opts...)
	return f
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_Reindex(t *testing.T) {
	Convey("Given a service over an in-memory source and store", t, func() {
		ctx := context.Background()
		f := newFixture()
		defer f.store.Close()

		Convey("When a public event post is reindexed", func() {
			f.src.Put(doc(1, publicBody))
			outcome, err := f.svc.Reindex(ctx, 1)

			Convey("Then it is indexed with its place and coordinate", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, service.OutcomeIndexed)
				rec, err := f.svc.Get(ctx, 1)
				So(err, ShouldBeNil)
				So(rec.Title, ShouldEqual, "Community Potluck")
				So(rec.TopicID, ShouldEqual, 10)
				So(rec.City, ShouldEqual, "Austin")
				So(rec.State, ShouldEqual, "TX")
				So(rec.Coordinate, ShouldNotBeNil)
				So(rec.Timezone, ShouldEqual, "America/Chicago")
			})

			Convey("And reindexing it again yields the same record", func() {
				first, _ := f.svc.Get(ctx, 1)
				_, err := f.svc.Reindex(ctx, 1)
				So(err, ShouldBeNil)
				second, _ := f.svc.Get(ctx, 1)
				first.IndexedAt, second.IndexedAt = time.Time{}, time.Time{}
				So(second, ShouldResemble, first)
			})

			Convey("And the post is edited to be non-public", func() {
				f.src.Put(doc(1, privateBody))
				outcome, err := f.svc.Reindex(ctx, 1)

				Convey("Then the prior record is removed", func() {
					So(err, ShouldBeNil)
					So(outcome, ShouldEqual, service.OutcomeRejected)
					_, err := f.svc.Get(ctx, 1)
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})
			})

			Convey("And the post disappears from the source", func() {
				f.src.Remove(1)
				outcome, err := f.svc.Reindex(ctx, 1)

				Convey("Then it is treated as a rejection", func() {
					So(err, ShouldBeNil)
					So(outcome, ShouldEqual, service.OutcomeRejected)
					n, _ := f.store.Count(ctx)
					So(n, ShouldEqual, 0)
				})
			})

			Convey("And the store rejects the next write", func() {
				f.src.Put(doc(1, "Renamed Potluck\n"+publicBody))
				f.store.fail(1, true)
				_, err := f.svc.Reindex(ctx, 1)

				Convey("Then the error propagates and the previous record survives", func() {
					So(err, ShouldNotBeNil)
					rec, gerr := f.svc.Get(ctx, 1)
					So(gerr, ShouldBeNil)
					So(rec.Title, ShouldEqual, "Community Potluck")
				})
			})
		})

		Convey("When a post without a physical location is reindexed", func() {
			f.src.Put(doc(2, "Online Meetup\n[date=2025-06-03]\nVisibility: Public\nLocation: Zoom"))
			_, err := f.svc.Reindex(ctx, 2)

			Convey("Then the geocoder is never called", func() {
				So(err, ShouldBeNil)
				So(f.geo.calls, ShouldEqual, 0)
				rec, _ := f.svc.Get(ctx, 2)
				So(rec.Coordinate, ShouldBeNil)
			})
		})

		Convey("When the post id is invalid", func() {
			_, err := f.svc.Reindex(ctx, 0)
			So(errors.Is(err, service.ErrInvalidPostID), ShouldBeTrue)
		})
	})
}

func TestService_ReindexAll(t *testing.T) {
	Convey("Given a source with public, private and unwritable posts", t, func() {
		ctx := context.Background()
		f := newFixture(service.WithReindexConcurrency(2))
		defer f.store.Close()

		f.src.Put(doc(1, publicBody))
		f.src.Put(doc(2, privateBody))
		f.src.Put(doc(3, publicBody))
		f.src.Put(doc(4, publicBody))
		f.store.fail(3, true)

		Convey("When a bulk reindex runs", func() {
			report, err := f.svc.ReindexAll(ctx)

			Convey("Then failures are counted without aborting the batch", func() {
				So(err, ShouldBeNil)
				So(report.BatchID, ShouldNotBeEmpty)
				So(report.Candidates, ShouldEqual, 4)
				So(report.Indexed, ShouldEqual, 2)
				So(report.Rejected, ShouldEqual, 1)
				So(report.Failed, ShouldEqual, 1)
				n, _ := f.store.Count(ctx)
				So(n, ShouldEqual, 2)
			})

			Convey("Then the report is kept for stats", func() {
				last := f.svc.LastBatch()
				So(last, ShouldNotBeNil)
				So(last.BatchID, ShouldEqual, report.BatchID)
				So(f.svc.GetStats(ctx)["indexedEvents"], ShouldEqual, 2)
			})
		})

		Convey("When the candidate limit is lower than the source size", func() {
			f.svc = service.New(f.src, normalize.New(temporal.NewResolver(nil), nil, normalize.Region{}), f.store,
				service.WithReindexLimit(2))
			report, err := f.svc.ReindexAll(ctx)

			Convey("Then only the lowest ids are visited", func() {
				So(err, ShouldBeNil)
				So(report.Candidates, ShouldEqual, 2)
				So(report.Indexed, ShouldEqual, 1)
				So(report.Rejected, ShouldEqual, 1)
			})
		})
	})
}

func TestService_Hooks(t *testing.T) {
	Convey("Given a service that is not started", t, func() {
		f := newFixture()
		defer f.store.Close()

		Convey("Then change hooks are refused", func() {
			err := f.svc.OnPostCreated(context.Background(), 1)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a started service", t, func() {
		ctx := context.Background()
		f := newFixture(service.WithWorkerCount(2), service.WithQueueSize(16))
		So(f.svc.Start(ctx), ShouldBeNil)
		So(f.svc.GetStats(ctx)["started"], ShouldEqual, true)

		Convey("When a post is created", func() {
			f.src.Put(doc(7, publicBody))
			So(f.svc.OnPostCreated(ctx, 7), ShouldBeNil)

			Convey("Then a worker indexes it", func() {
				So(eventually(func() bool {
					_, err := f.svc.Get(ctx, 7)
					return err == nil
				}), ShouldBeTrue)
			})

			Convey("And then deleted", func() {
				So(eventually(func() bool {
					_, err := f.svc.Get(ctx, 7)
					return err == nil
				}), ShouldBeTrue)
				f.src.Remove(7)
				So(f.svc.OnPostDeleted(ctx, 7), ShouldBeNil)

				Convey("Then the record is removed", func() {
					So(eventually(func() bool {
						_, err := f.svc.Get(ctx, 7)
						return errors.Is(err, repository.ErrNotFound)
					}), ShouldBeTrue)
				})
			})
		})

		Convey("When many edits arrive and the service stops", func() {
			for id := int64(1); id <= 10; id++ {
				f.src.Put(doc(id, publicBody))
				So(f.svc.OnPostEdited(ctx, id), ShouldBeNil)
				So(f.svc.OnPostEdited(ctx, id), ShouldBeNil)
			}
			So(f.svc.Stop(ctx), ShouldBeNil)

			Convey("Then pending changes are drained first", func() {
				n, _ := f.store.Count(ctx)
				So(n, ShouldEqual, 10)
				So(f.svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})

		Reset(func() {
			_ = f.svc.Stop(ctx)
		})
	})
}

func TestService_Restart(t *testing.T) {
	Convey("Given a service that was started, stopped and started again", t, func() {
		ctx := context.Background()
		f := newFixture(service.WithWorkerCount(2), service.WithQueueSize(32))
		So(f.svc.Start(ctx), ShouldBeNil)
		So(f.svc.Stop(ctx), ShouldBeNil)
		So(f.svc.Start(ctx), ShouldBeNil)

		Convey("When posts change concurrently", func() {
			var wg sync.WaitGroup
			for id := int64(1); id <= 8; id++ {
				f.src.Put(doc(id, publicBody))
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = f.svc.OnPostCreated(ctx, id)
					_ = f.svc.OnPostEdited(ctx, id)
				}()
			}
			wg.Wait()
			So(f.svc.Stop(ctx), ShouldBeNil)

			Convey("Then the second run indexes and drains them", func() {
				n, _ := f.store.Count(ctx)
				So(n, ShouldEqual, 8)
			})
		})

		Reset(func() {
			_ = f.svc.Stop(ctx)
		})
	})
}

func TestService_Backfill(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty index and a source with posts", t, func() {
		f := newFixture(service.WithBackfill(service.BackfillAuto))
		f.src.Put(doc(1, publicBody))
		f.src.Put(doc(2, publicBody))
		f.src.Put(doc(3, privateBody))

		Convey("When the service starts", func() {
			So(f.svc.Start(ctx), ShouldBeNil)
			defer f.svc.Stop(ctx)

			Convey("Then the index is filled without any notification", func() {
				So(eventually(func() bool { return f.svc.LastBatch() != nil }), ShouldBeTrue)
				n, _ := f.store.Count(ctx)
				So(n, ShouldEqual, 2)
				So(f.svc.LastBatch().Rejected, ShouldEqual, 1)
			})
		})
	})

	Convey("Given an index that already holds records", t, func() {
		f := newFixture(service.WithBackfill(service.BackfillAuto))
		f.src.Put(doc(1, publicBody))
		_, err := f.svc.Reindex(ctx, 1)
		So(err, ShouldBeNil)
		f.src.Put(doc(2, publicBody))

		Convey("When the service starts in auto mode", func() {
			So(f.svc.Start(ctx), ShouldBeNil)
			So(f.svc.Stop(ctx), ShouldBeNil)

			Convey("Then no backfill runs", func() {
				So(f.svc.LastBatch(), ShouldBeNil)
				n, _ := f.store.Count(ctx)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When the service starts in always mode", func() {
			f.svc = service.New(f.src, f.norm, f.store, service.WithBackfill(service.BackfillAlways))
			So(f.svc.Start(ctx), ShouldBeNil)
			So(eventually(func() bool { return f.svc.LastBatch() != nil }), ShouldBeTrue)
			So(f.svc.Stop(ctx), ShouldBeNil)

			Convey("Then every candidate is reindexed", func() {
				n, _ := f.store.Count(ctx)
				So(n, ShouldEqual, 2)
			})
		})
	})

	Convey("Given the default options", t, func() {
		f := newFixture()
		f.src.Put(doc(1, publicBody))
		So(f.svc.Start(ctx), ShouldBeNil)
		So(f.svc.Stop(ctx), ShouldBeNil)

		Convey("Then Start does not backfill", func() {
			So(f.svc.LastBatch(), ShouldBeNil)
			So(f.svc.GetStats(ctx)["backfill"], ShouldEqual, service.BackfillNever)
		})
	})
}

func TestService_Schedule(t *testing.T) {
	Convey("Given an invalid reindex schedule", t, func() {
		f := newFixture(service.WithReindexSchedule("not a cron"))
		defer f.store.Close()

		Convey("Then Start fails", func() {
			So(f.svc.Start(context.Background()), ShouldNotBeNil)
		})
	})

	Convey("Given a valid reindex schedule", t, func() {
		ctx := context.Background()
		f := newFixture(service.WithReindexSchedule("@every 1h"))
		So(f.svc.Start(ctx), ShouldBeNil)

		Convey("Then the service starts and stops cleanly", func() {
			So(f.svc.GetStats(ctx)["schedule"], ShouldEqual, "@every 1h")
			So(f.svc.Stop(ctx), ShouldBeNil)
		})
	})
}
