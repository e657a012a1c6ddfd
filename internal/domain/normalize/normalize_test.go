package normalize_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/internal/domain/normalize"
	"github.com/okian/eventdex/internal/domain/temporal"
	. "github.com/smartystreets/goconvey/convey"
)

// recordingGeocoder remembers every query and answers with a fixed point.
type recordingGeocoder struct {
	mu      sync.Mutex
	queries []string
	coord   *model.Coordinate
}

func (g *recordingGeocoder) Resolve(_ context.Context, q string) *model.Coordinate {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries = append(g.queries, q)
	return g.coord
}

func (g *recordingGeocoder) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queries)
}

func chicago() *time.Location {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		panic(err)
	}
	return loc
}

func publicDoc(id int64, body string) model.SourceDocument {
	return model.SourceDocument{
		ID:        id,
		Body:      body,
		CreatedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		Thread:    model.Thread{ID: 900 + id, Title: "Thread title", CategoryID: 4, Visible: true},
	}
}

func TestNormalize(t *testing.T) {
	ctx := context.Background()
	region := normalize.Region{DefaultState: "TX", DefaultCountry: "USA"}
	fixed := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)

	Convey("Given a normalizer with a stub geocoder", t, func() {
		geo := &recordingGeocoder{coord: &model.Coordinate{Lat: 30.2672, Lng: -97.7431}}
		n := normalize.New(temporal.NewResolver(chicago()), geo, region,
			normalize.WithClock(func() time.Time { return fixed }))

		Convey("When the post is the canonical public event", func() {
			doc := publicDoc(1, "Visibility: Public\n[date=2025-06-01 time=090000]\n**Address:** 100 Main St, Austin, TX")
			rec, err := n.Normalize(ctx, doc)

			Convey("Then the record is built and geocoding is attempted", func() {
				So(err, ShouldBeNil)
				So(rec.PostID, ShouldEqual, 1)
				So(rec.TopicID, ShouldEqual, 901)
				So(rec.CategoryID, ShouldEqual, 4)
				So(rec.Visibility, ShouldEqual, "public")
				So(rec.StartsAt.Format(time.RFC3339), ShouldEqual, "2025-06-01T09:00:00-05:00")
				So(rec.EndsAt.Sub(rec.StartsAt), ShouldEqual, time.Hour)
				So(rec.Timezone, ShouldEqual, "America/Chicago")
				So(rec.Address, ShouldEqual, "100 Main St, Austin, TX")
				So(rec.State, ShouldEqual, "TX")
				So(rec.Country, ShouldEqual, "USA")
				So(geo.queries, ShouldResemble, []string{"100 Main St, Austin, TX, USA"})
				So(rec.Coordinate, ShouldResemble, &model.Coordinate{Lat: 30.2672, Lng: -97.7431})
				So(rec.IndexedAt, ShouldEqual, fixed)
			})

			Convey("Then the title falls back to the first plain line", func() {
				So(rec.Title, ShouldEqual, "Visibility: Public")
			})
		})

		Convey("When visibility is anything but public", func() {
			for _, vis := range []string{"Private", "members", "public-ish", ""} {
				_, err := n.Normalize(ctx, publicDoc(3, "Picnic\nVisibility: "+vis+"\nCity: Austin"))
				So(errors.Is(err, normalize.ErrNotPublic), ShouldBeTrue)
				So(errors.Is(err, normalize.ErrRejected), ShouldBeTrue)
			}
			_, err := n.Normalize(ctx, publicDoc(3, "Picnic\nCity: Austin"))
			So(errors.Is(err, normalize.ErrNotPublic), ShouldBeTrue)
			So(geo.calls(), ShouldEqual, 0)
		})

		Convey("When visibility differs only in case and spacing", func() {
			_, err := n.Normalize(ctx, publicDoc(4, "Picnic\nVisibility:   PUBLIC  "))
			So(err, ShouldBeNil)
		})

		Convey("When rejection conditions stack", func() {
			doc := publicDoc(5, "")
			doc.Deleted = true
			doc.Thread.Visible = false

			Convey("Then the first condition in order wins", func() {
				_, err := n.Normalize(ctx, doc)
				So(errors.Is(err, normalize.ErrDeleted), ShouldBeTrue)
				So(normalize.Reason(err), ShouldEqual, "deleted")

				doc.Deleted = false
				_, err = n.Normalize(ctx, doc)
				So(errors.Is(err, normalize.ErrNotVisible), ShouldBeTrue)

				doc.Thread.Visible = true
				_, err = n.Normalize(ctx, doc)
				So(errors.Is(err, normalize.ErrEmptyBody), ShouldBeTrue)
			})
		})

		Convey("When the thread is deleted", func() {
			doc := publicDoc(6, "Visibility: public")
			doc.Thread.Deleted = true
			_, err := n.Normalize(ctx, doc)
			So(errors.Is(err, normalize.ErrDeleted), ShouldBeTrue)
		})

		Convey("When no start time can be derived", func() {
			doc := publicDoc(7, "Visibility: public\nNo tags here")
			doc.CreatedAt = time.Time{}
			_, err := n.Normalize(ctx, doc)

			Convey("Then the document is rejected", func() {
				So(errors.Is(err, normalize.ErrNoStartTime), ShouldBeTrue)
				So(normalize.Reason(err), ShouldEqual, "no_start_time")
			})
		})

		Convey("When the post names only a virtual location", func() {
			doc := publicDoc(8, "Webinar\nVisibility: public\nLocation: Zoom\nLink: https://zoom.example/123")
			rec, err := n.Normalize(ctx, doc)

			Convey("Then the geocoder is never called and no coordinate is stored", func() {
				So(err, ShouldBeNil)
				So(geo.calls(), ShouldEqual, 0)
				So(rec.Coordinate, ShouldBeNil)
				So(rec.LocationName, ShouldEqual, "Zoom")
				So(rec.ExternalURL, ShouldEqual, "https://zoom.example/123")
			})
		})

		Convey("When the post has a city and relies on the default state", func() {
			doc := publicDoc(9, "Meetup\nVisibility: public\nLocation: Central Library\nCity: Waco")
			rec, err := n.Normalize(ctx, doc)

			Convey("Then the location name heads the query", func() {
				So(err, ShouldBeNil)
				So(geo.queries, ShouldResemble, []string{"Central Library, Waco, TX, USA"})
				So(rec.Coordinate, ShouldNotBeNil)
			})
		})

		Convey("When the geocoder finds nothing", func() {
			geo.coord = nil
			rec, err := n.Normalize(ctx, publicDoc(10, "Visibility: public\nAddress: 1 Unknown Rd"))
			So(err, ShouldBeNil)
			So(geo.calls(), ShouldEqual, 1)
			So(rec.Coordinate, ShouldBeNil)
		})

		Convey("When the same document is normalized twice", func() {
			doc := publicDoc(11, "Fair\nVisibility: public\n[date=2025-09-09 time=1000]\nAddress: 5 Elm St\nCity: Austin")
			a, errA := n.Normalize(ctx, doc)
			b, errB := n.Normalize(ctx, doc)

			Convey("Then the records are identical", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldResemble, b)
			})
		})
	})

	Convey("Given a normalizer without a geocoder", t, func() {
		n := normalize.New(temporal.NewResolver(chicago()), nil, region)

		Convey("Then physical locations are stored without coordinates", func() {
			rec, err := n.Normalize(ctx, publicDoc(12, "Visibility: public\nAddress: 5 Elm St"))
			So(err, ShouldBeNil)
			So(rec.Coordinate, ShouldBeNil)
		})
	})
}

func TestHasPhysicalLocation(t *testing.T) {
	Convey("Given location parts", t, func() {
		So(normalize.HasPhysicalLocation("100 Main St", "", ""), ShouldBeTrue)
		So(normalize.HasPhysicalLocation("", "Austin", "TX"), ShouldBeTrue)
		So(normalize.HasPhysicalLocation("", "Austin", ""), ShouldBeFalse)
		So(normalize.HasPhysicalLocation("", "", "TX"), ShouldBeFalse)
		So(normalize.HasPhysicalLocation("  ", " ", " "), ShouldBeFalse)
	})
}

func TestGeocodeQuery(t *testing.T) {
	Convey("Given place parts", t, func() {
		Convey("When every part is distinct", func() {
			q := normalize.GeocodeQuery(normalize.Place{Address: "1800 Allen Pkwy", City: "Houston", State: "TX", Zip: "77019", Country: "USA"})
			So(q, ShouldEqual, "1800 Allen Pkwy, Houston, TX, 77019, USA")
		})

		Convey("When the address already carries city and state", func() {
			q := normalize.GeocodeQuery(normalize.Place{Address: "100 Main St, Austin, TX", City: "austin", State: "TX"})
			So(q, ShouldEqual, "100 Main St, Austin, TX")
		})

		Convey("When only a location name is present", func() {
			q := normalize.GeocodeQuery(normalize.Place{LocationName: "Discovery Green", City: "Houston", State: "TX"})
			So(q, ShouldEqual, "Discovery Green, Houston, TX")
		})

		Convey("When nothing is present", func() {
			So(normalize.GeocodeQuery(normalize.Place{}), ShouldEqual, "")
		})
	})
}
