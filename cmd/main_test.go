package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/eventdex/internal/adapters/repository"
	"github.com/okian/eventdex/internal/adapters/source"
	service "github.com/okian/eventdex/internal/app"
	"github.com/okian/eventdex/internal/config"
	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/internal/domain/normalize"
	"github.com/okian/eventdex/internal/domain/temporal"
	"github.com/okian/eventdex/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewMux(t *testing.T) {
	convey.Convey("Given a service over one public event", t, func() {
		ctx := context.Background()
		src := source.NewMemorySource(model.SourceDocument{
			ID:        1,
			Body:      "Spring Cleanup\n[date=2025-04-12 time=0900]\nVisibility: Public",
			CreatedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			Thread:    model.Thread{ID: 5, Visible: true},
		})
		store := repository.NewTreapStore(ctx)
		defer store.Close()
		norm := normalize.New(temporal.NewResolver(time.UTC), nil, normalize.Region{DefaultState: "TX"})
		svc := service.New(src, norm, store)
		_, err := svc.Reindex(ctx, 1)
		convey.So(err, convey.ShouldBeNil)

		mux := newMux(svc, config.New())

		convey.Convey("Then every route is served", func() {
			for _, path := range []string{"/events", "/events/1", "/events.ics", "/stats", "/healthz", "/openapi.yaml", "/api-docs"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then the indexed event is listed", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", http.NoBody))
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"title":"Spring Cleanup"`)
		})
	})
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestChangeProducers(t *testing.T) {
	convey.Convey("Given a started service over a document directory", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		dir := t.TempDir()
		store := repository.NewTreapStore(ctx)
		norm := normalize.New(temporal.NewResolver(time.UTC), nil, normalize.Region{DefaultState: "TX"})
		svc := service.New(source.NewDirSource(dir), norm, store,
			service.WithWorkerCount(2), service.WithQueueSize(16))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)

		doc := model.SourceDocument{
			ID:        21,
			Body:      "Park Cleanup\n[date=2025-04-12 time=0900]\nVisibility: Public",
			CreatedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			Thread:    model.Thread{ID: 5, Visible: true},
		}
		indexed := func() bool {
			_, err := svc.Get(ctx, doc.ID)
			return err == nil
		}

		convey.Convey("When the directory is watched and a document file appears", func() {
			watchCtx, stopWatch := context.WithCancel(ctx)
			done := watchSource(watchCtx, dir, svc, logger.Nop())
			_, err := source.WriteDocumentFile(dir, doc)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the post is indexed without a restart", func() {
				convey.So(eventually(indexed), convey.ShouldBeTrue)
			})

			convey.Convey("And its file is removed", func() {
				convey.So(eventually(indexed), convey.ShouldBeTrue)
				convey.So(os.Remove(filepath.Join(dir, "21.yaml")), convey.ShouldBeNil)

				convey.Convey("Then the record is dropped", func() {
					convey.So(eventually(func() bool { return !indexed() }), convey.ShouldBeTrue)
				})
			})

			convey.Reset(func() {
				stopWatch()
				<-done
			})
		})

		convey.Convey("When a change arrives through the webhook", func() {
			_, err := source.WriteDocumentFile(dir, doc)
			convey.So(err, convey.ShouldBeNil)
			mux := newMux(svc, config.New())
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/hooks/posts/21?kind=created", http.NoBody))

			convey.Convey("Then it is accepted and indexed", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)
				convey.So(eventually(indexed), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the watched directory does not exist", func() {
			done := watchSource(ctx, filepath.Join(dir, "missing"), svc, logger.Nop())

			convey.Convey("Then the watcher is skipped", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("watcher did not report itself stopped")
				}
			})
		})

		convey.Reset(func() {
			_ = svc.Stop(context.Background())
			cancel()
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the metrics registry", t, func() {
		convey.Convey("Then updating system metrics does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the updater stops with its context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			cancel()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}
