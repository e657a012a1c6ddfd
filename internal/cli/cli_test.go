package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/eventdex/internal/cli"
	"github.com/smartystreets/goconvey/convey"
)

func run(args ...string) (string, error) {
	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EVENTDEX_SOURCE_DIR", dir)
	t.Setenv("EVENTDEX_GEOCODE__NOMINATIM_ENABLED", "false")
	t.Setenv("EVENTDEX_STORE_BACKEND", "memory")

	convey.Convey("Given generated posts in the source directory", t, func() {
		out, err := run("generate", "--count", "12", "--seed", "3")
		convey.So(err, convey.ShouldBeNil)
		convey.So(out, convey.ShouldContainSubstring, "wrote 12 posts")

		convey.Convey("When reindexing everything", func() {
			out, err := run("reindex")

			convey.Convey("Then the batch report counts each outcome", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"indexed": 6`)
				convey.So(out, convey.ShouldContainSubstring, `"rejected": 6`)
				convey.So(out, convey.ShouldContainSubstring, `"failed": 0`)
			})
		})

		convey.Convey("When reindexing one post", func() {
			out, err := run("reindex", "--id", "1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldEqual, "post 1: indexed\n")
		})

		convey.Convey("When listing with a refresh", func() {
			out, err := run("list", "--refresh", "--format", "ics")
			convey.So(err, convey.ShouldBeNil)
			convey.So(strings.Count(out, "BEGIN:VEVENT"), convey.ShouldEqual, 6)
		})

		convey.Convey("When listing with an unknown format", func() {
			_, err := run("list", "--format", "xml")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When normalizing a single file offline", func() {
			out, err := run("normalize", "--offline", filepath.Join(dir, "1.yaml"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, `"post_id": 1`)
		})

		convey.Convey("When normalizing a members-only post", func() {
			out, err := run("normalize", "--offline", filepath.Join(dir, "4.yaml"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldEqual, "rejected: not_public\n")
		})

		convey.Convey("When normalizing a missing file", func() {
			_, err := run("normalize", filepath.Join(dir, "missing.yaml"))
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Reset(func() {
			entries, _ := os.ReadDir(dir)
			for _, e := range entries {
				_ = os.Remove(filepath.Join(dir, e.Name()))
			}
		})
	})
}
