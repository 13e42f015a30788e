package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/okian/beatpage/internal/adapters/blob"
	service "github.com/okian/beatpage/internal/app"
	"github.com/okian/beatpage/internal/domain/model"
	"github.com/okian/beatpage/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type refusingBlobs struct{}

func (refusingBlobs) Put(context.Context, string, io.Reader, int64, string) error {
	return errors.New("bucket unavailable")
}

func uploads(names ...string) []service.Upload {
	out := make([]service.Upload, 0, len(names))
	for _, n := range names {
		body := "audio:" + n
		out = append(out, service.Upload{
			Name:        n,
			ContentType: "audio/mpeg",
			Size:        int64(len(body)),
			Body:        strings.NewReader(body),
		})
	}
	return out
}

func TestPage_Render(t *testing.T) {
	Convey("Given a page that has not loaded yet", t, func() {
		ctx := context.Background()
		store := newFaultyStore()
		seedProfile(store, "u1", sampleProfile())
		page := service.NewPage(service.NewHook(store))

		Convey("Then only the loading state is rendered", func() {
			So(page.Render(), ShouldResemble, service.View{State: types.ViewLoading})
		})

		Convey("When the profile loads", func() {
			page.Mount(ctx, "u1")
			<-page.Ready()
			view := page.Render()

			Convey("Then the content state carries profile and tracks", func() {
				So(view.State, ShouldEqual, types.ViewContent)
				So(view.Message, ShouldBeEmpty)
				So(view.Profile.Name, ShouldEqual, "DJ Nova")
				So(view.Tracks, ShouldBeEmpty)
				So(view.Payment, ShouldNotBeNil)
				So(view.Payment.Open, ShouldBeFalse)
			})

			Convey("And the JSON always carries the track list and editing flag", func() {
				data, err := json.Marshal(view)
				So(err, ShouldBeNil)
				var out map[string]any
				So(json.Unmarshal(data, &out), ShouldBeNil)
				So(out["tracks"], ShouldResemble, []any{})
				So(out["editing"], ShouldEqual, false)
				So(out, ShouldNotContainKey, "message")
			})
		})

		Convey("Then the loading state marshals to its state alone", func() {
			data, err := json.Marshal(page.Render())
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, `{"state":"loading"}`)
		})

		Convey("When the profile is missing", func() {
			page.Mount(ctx, "ghost")
			view := page.Render()

			Convey("Then the fallback message is rendered and nothing else", func() {
				So(view, ShouldResemble, service.View{State: types.ViewError, Message: "Failed to load profile"})
			})
		})

		Convey("When the load fails", func() {
			store.fail("read", errRejected)
			page.Mount(ctx, "u1")

			Convey("Then the store message is rendered", func() {
				So(page.Render(), ShouldResemble, service.View{State: types.ViewError, Message: errRejected.Error()})
			})
		})

		Convey("When the same user is mounted twice", func() {
			page.Mount(ctx, "u1")
			name := "Local"
			So(page.EditProfile(ctx, model.ProfilePatch{Name: &name}), ShouldBeTrue)
			store.fail("read", errRejected)
			page.Mount(ctx, "u1")

			Convey("Then no second load happens", func() {
				So(page.Render().State, ShouldEqual, types.ViewContent)
				So(page.Render().Profile.Name, ShouldEqual, "Local")
			})
		})
	})
}

func TestPage_Payment(t *testing.T) {
	Convey("Given a loaded page with an open payment form", t, func() {
		ctx := context.Background()
		store := newFaultyStore()
		seedProfile(store, "u1", sampleProfile())
		page := service.NewPage(service.NewHook(store))
		page.Mount(ctx, "u1")
		page.OpenPayment()
		page.SetPayment(50, "4111 1111 1111 1234")

		Convey("Then the card is masked in the render", func() {
			pay := page.Render().Payment
			So(pay.Open, ShouldBeTrue)
			So(pay.Amount, ShouldEqual, 50.0)
			So(pay.CardMasked, ShouldEqual, "**** 1234")
		})

		Convey("When the payment is submitted", func() {
			ok := page.SubmitPayment(ctx)

			Convey("Then the amount is added and the form reset", func() {
				So(ok, ShouldBeTrue)
				So(page.Render().Profile.Balance, ShouldEqual, 150.0)
				So(page.Payment(), ShouldResemble, service.PaymentForm{})
			})
		})

		Convey("When a negative amount is submitted", func() {
			page.SetPayment(-30, "")
			So(page.SubmitPayment(ctx), ShouldBeTrue)
			So(page.Render().Profile.Balance, ShouldEqual, 70.0)
		})

		Convey("When the balance update fails", func() {
			store.fail("update", errRejected)
			ok := page.SubmitPayment(ctx)

			Convey("Then the form keeps its fields and stays open", func() {
				So(ok, ShouldBeFalse)
				So(page.Payment(), ShouldResemble, service.PaymentForm{
					Open:       true,
					Amount:     50,
					CardNumber: "4111 1111 1111 1234",
				})
				So(page.Hook().State().Profile.Balance, ShouldEqual, 100.0)
			})
		})

		Convey("When the panel is closed", func() {
			page.ClosePayment()
			So(page.Payment().Open, ShouldBeFalse)
			So(page.Payment().Amount, ShouldEqual, 50.0)
		})
	})
}

func TestPage_Editing(t *testing.T) {
	Convey("Given a loaded page", t, func() {
		ctx := context.Background()
		store := newFaultyStore()
		seedProfile(store, "u1", sampleProfile())
		page := service.NewPage(service.NewHook(store))
		page.Mount(ctx, "u1")

		Convey("Then editing toggles", func() {
			So(page.ToggleEditing(), ShouldBeTrue)
			So(page.Render().Editing, ShouldBeTrue)
			So(page.ToggleEditing(), ShouldBeFalse)
		})

		Convey("When editing several fields at once", func() {
			about := "New bio"
			social := model.Social{YouTube: "nova"}
			ok := page.EditProfile(ctx, model.ProfilePatch{About: &about, Social: &social, Genres: []string{}})

			Convey("Then they are merged locally", func() {
				So(ok, ShouldBeTrue)
				prof := page.Render().Profile
				So(prof.About, ShouldEqual, "New bio")
				So(prof.Social, ShouldResemble, social)
				So(prof.Genres, ShouldBeEmpty)
				So(prof.Location, ShouldEqual, "Berlin")
			})
		})
	})
}

func TestPage_Uploads(t *testing.T) {
	Convey("Given a loaded page archiving to memory", t, func() {
		ctx := context.Background()
		store := newFaultyStore()
		seedProfile(store, "u1", sampleProfile())
		archive := blob.NewMemoryStore()
		page := service.NewPage(service.NewHook(store), service.WithBlobStore(archive))
		page.Mount(ctx, "u1")

		Convey("When three files are uploaded", func() {
			added := page.UploadFiles(ctx, uploads("a.mp3", "b.wav", "c.flac"))
			tracks := page.Hook().State().Tracks

			Convey("Then tracks follow file order with defaults", func() {
				So(len(added), ShouldEqual, 3)
				So(tracks, ShouldResemble, added)
				titles := []string{tracks[0].Title, tracks[1].Title, tracks[2].Title}
				So(titles, ShouldResemble, []string{"a", "b", "c"})
				for _, tr := range tracks {
					So(tr.BPM, ShouldEqual, 128)
					So(tr.Key, ShouldEqual, "Am")
					So(tr.Likes, ShouldEqual, 0)
					So(tr.Comments, ShouldEqual, 0)
					So(tr.Image, ShouldEqual, model.PlaceholderImage)
				}
				So(tracks[0].ID, ShouldNotEqual, tracks[1].ID)
				So(tracks[1].ID, ShouldNotEqual, tracks[2].ID)
				So(store.writeOrder(), ShouldResemble, []string{tracks[0].ID, tracks[1].ID, tracks[2].ID})
			})

			Convey("And each file is archived under its track", func() {
				So(archive.Len(), ShouldEqual, 3)
				data, ct, ok := archive.Get("audio/u1/" + tracks[1].ID + ".wav")
				So(ok, ShouldBeTrue)
				So(string(data), ShouldEqual, "audio:b.wav")
				So(ct, ShouldEqual, "audio/mpeg")
			})
		})

		Convey("When the same files are dropped", func() {
			added := page.DropFiles(ctx, uploads("a.mp3", "b.wav", "c.flac"))

			Convey("Then the result matches an upload", func() {
				So(len(added), ShouldEqual, 3)
				So(added[2].Title, ShouldEqual, "c")
			})
		})

		Convey("When the store rejects writes", func() {
			store.fail("write", errRejected)
			added := page.UploadFiles(ctx, uploads("a.mp3"))

			Convey("Then nothing is added or archived", func() {
				So(added, ShouldBeEmpty)
				So(archive.Len(), ShouldEqual, 0)
				So(page.Hook().State().Error, ShouldEqual, errRejected.Error())
			})
		})
	})

	Convey("Given an archive that refuses uploads", t, func() {
		ctx := context.Background()
		store := newFaultyStore()
		seedProfile(store, "u1", sampleProfile())
		page := service.NewPage(service.NewHook(store), service.WithBlobStore(refusingBlobs{}))
		page.Mount(ctx, "u1")

		Convey("Then tracks are still added", func() {
			added := page.UploadFiles(ctx, uploads("keep.mp3"))
			So(len(added), ShouldEqual, 1)
			So(page.Hook().State().Error, ShouldBeEmpty)
		})
	})

	Convey("Given a custom placeholder", t, func() {
		ctx := context.Background()
		store := newFaultyStore()
		page := service.NewPage(service.NewHook(store), service.WithPlaceholderImage("https://cdn.example/cover.png"))
		page.Mount(ctx, "u1")

		Convey("Then uploaded tracks use it", func() {
			added := page.UploadFiles(ctx, uploads("x.mp3"))
			So(added[0].Image, ShouldEqual, "https://cdn.example/cover.png")
		})
	})
}
