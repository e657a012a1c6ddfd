package fixtures_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/eventdex/internal/adapters/source"
	"github.com/okian/eventdex/internal/domain/normalize"
	"github.com/okian/eventdex/internal/domain/temporal"
	"github.com/okian/eventdex/internal/fixtures"
	"github.com/okian/eventdex/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	convey.Convey("Given a fixture config", t, func() {
		cfg := fixtures.Config{Count: 12, StartID: 100, Seed: 7}

		convey.Convey("When generating twice", func() {
			a := fixtures.Generate(cfg)
			b := fixtures.Generate(cfg)

			convey.Convey("Then the output is deterministic with sequential ids", func() {
				convey.So(a, convey.ShouldResemble, b)
				convey.So(a, convey.ShouldHaveLength, 12)
				convey.So(a[0].ID, convey.ShouldEqual, 100)
				convey.So(a[11].ID, convey.ShouldEqual, 111)
			})
		})

		convey.Convey("When the posts are normalized", func() {
			norm := normalize.New(temporal.NewResolver(time.UTC), nil, normalize.Region{DefaultState: "TX", DefaultCountry: "USA"})
			var indexed, rejected int
			for _, d := range fixtures.Generate(cfg) {
				_, err := norm.Normalize(context.Background(), d)
				switch {
				case err == nil:
					indexed++
				case errors.Is(err, normalize.ErrRejected):
					rejected++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}

			convey.Convey("Then public shapes index and the rest are rejected", func() {
				convey.So(indexed, convey.ShouldEqual, 6)
				convey.So(rejected, convey.ShouldEqual, 6)
			})
		})
	})
}

func TestWriteDir(t *testing.T) {
	convey.Convey("Given generated posts written to a directory", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		docs := fixtures.Generate(fixtures.Config{Count: 3, Seed: 1})
		convey.So(fixtures.WriteDir(ctx, dir, docs, logger.Nop()), convey.ShouldBeNil)

		convey.Convey("Then a directory source lists and reads them", func() {
			src := source.NewDirSource(dir)
			ids, err := src.Candidates(ctx, 0)
			convey.So(err, convey.ShouldBeNil)
			convey.So(ids, convey.ShouldResemble, []int64{1, 2, 3})

			doc, err := src.Document(ctx, 2)
			convey.So(err, convey.ShouldBeNil)
			convey.So(doc.Body, convey.ShouldEqual, docs[1].Body)
		})

		convey.Convey("Then a cancelled context stops the write", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			convey.So(fixtures.WriteDir(cctx, t.TempDir(), docs, logger.Nop()), convey.ShouldNotBeNil)
		})
	})
}
