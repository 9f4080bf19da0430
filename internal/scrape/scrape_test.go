package scrape_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"go.followtheprocess.codes/msl/internal/scrape"
	"go.followtheprocess.codes/test"
)

func TestFetch(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>  Rockets Weekly  </title></head>
<body>
	<a href="/launches">Launches</a>
	<a href="https://other.example.com/about">About</a>
	<img src="/static/pic.png" alt="A rocket">
	<video><source src="clips/launch.mp4"></video>
	<audio src="/sounds/countdown"></audio>
</body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	client := scrape.New()

	result, err := client.Fetch(t.Context(), server.URL)
	test.Ok(t, err)

	test.Equal(t, result.URL, server.URL)
	test.Equal(t, result.Title, "Rockets Weekly")
	test.Equal(t, result.HTML, page)

	wantLinks := []string{
		server.URL + "/launches",
		"https://other.example.com/about",
	}
	test.EqualFunc(t, result.Links, wantLinks, slices.Equal)

	wantMedia := []scrape.MediaItem{
		{
			URL:   server.URL + "/static/pic.png",
			Kind:  scrape.KindImage,
			Attrs: map[string]string{"src": "/static/pic.png", "alt": "A rocket"},
		},
		{
			URL:   server.URL + "/clips/launch.mp4",
			Kind:  scrape.KindVideo,
			Attrs: map[string]string{"src": "clips/launch.mp4"},
		},
		{
			URL:   server.URL + "/sounds/countdown",
			Kind:  scrape.KindAudio,
			Attrs: map[string]string{"src": "/sounds/countdown"},
		},
	}
	test.EqualFunc(t, result.Media, wantMedia, func(got, want []scrape.MediaItem) bool {
		return reflect.DeepEqual(got, want)
	})
}

func TestFetchNoTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>Nothing to see here</p></body></html>")
	}))
	defer server.Close()

	client := scrape.New()

	result, err := client.Fetch(t.Context(), server.URL)
	test.Ok(t, err)

	test.Equal(t, result.Title, "")
}

func TestFetchErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		client := scrape.New()

		_, err := client.Fetch(t.Context(), server.URL)
		test.True(t, errors.Is(err, scrape.ErrTransport), test.Context("error = %v, want ErrTransport", err))
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := scrape.New()

		_, err := client.Fetch(t.Context(), server.URL)
		test.True(t, errors.Is(err, scrape.ErrTransport), test.Context("error = %v, want ErrTransport", err))
	})

	t.Run("bad url", func(t *testing.T) {
		client := scrape.New()

		_, err := client.Fetch(t.Context(), "://not-a-url")
		test.True(t, errors.Is(err, scrape.ErrInvalidURL), test.Context("error = %v, want ErrInvalidURL", err))
	})
}

func TestText(t *testing.T) {
	markup := `<div>
	<p class="quote">  To the moon  </p>
	<p class="quote">   </p>
	<p class="quote">and <span>back</span></p>
	<p>ignored</p>
</div>`

	client := scrape.New()

	texts, err := client.Text(markup, "p.quote")
	test.Ok(t, err)

	want := []string{"To the moon", "and back"}
	test.EqualFunc(t, texts, want, slices.Equal)
}

func TestAttribute(t *testing.T) {
	markup := `<ul>
	<li><a href="/one">1</a></li>
	<li><a href="/two">2</a></li>
	<li><a>3</a></li>
</ul>`

	client := scrape.New()

	values, err := client.Attribute(markup, "li a", "href")
	test.Ok(t, err)

	want := []string{"/one", "/two"}
	test.EqualFunc(t, values, want, slices.Equal)
}

func TestInvalidSelector(t *testing.T) {
	client := scrape.New()

	_, err := client.Text("<p>hello</p>", "p[")
	test.True(t, errors.Is(err, scrape.ErrInvalidSelector), test.Context("Text: error = %v, want ErrInvalidSelector", err))

	_, err = client.Attribute("<a href='x'>hello</a>", "a[", "href")
	test.True(t, errors.Is(err, scrape.ErrInvalidSelector), test.Context("Attribute: error = %v, want ErrInvalidSelector", err))
}

func TestAllMedia(t *testing.T) {
	markup := `<div>
	<img src="one.jpg">
	<img src="http://cdn.example.com/two.gif">
	<video src="vids/three"></video>
	<audio><source src="/four.ogg"></audio>
</div>`

	client := scrape.New()

	items, err := client.AllMedia(markup, "http://example.com/gallery/")
	test.Ok(t, err)

	want := []scrape.MediaItem{
		{
			URL:   "http://example.com/gallery/one.jpg",
			Kind:  scrape.KindImage,
			Attrs: map[string]string{"src": "one.jpg"},
		},
		{
			URL:   "http://cdn.example.com/two.gif",
			Kind:  scrape.KindImage,
			Attrs: map[string]string{"src": "http://cdn.example.com/two.gif"},
		},
		{
			URL:   "http://example.com/gallery/vids/three",
			Kind:  scrape.KindVideo,
			Attrs: map[string]string{"src": "vids/three"},
		},
		{
			URL:   "http://example.com/four.ogg",
			Kind:  scrape.KindAudio,
			Attrs: map[string]string{"src": "/four.ogg"},
		},
	}
	test.EqualFunc(t, items, want, func(got, want []scrape.MediaItem) bool {
		return reflect.DeepEqual(got, want)
	})
}

func TestAllMediaBadBase(t *testing.T) {
	client := scrape.New()

	_, err := client.AllMedia("<img src='a.jpg'>", "://not-a-url")
	test.True(t, errors.Is(err, scrape.ErrInvalidURL), test.Context("error = %v, want ErrInvalidURL", err))
}

func TestMediaItemFilename(t *testing.T) {
	tests := []struct {
		name string // Name of the test case
		want string // Expected filename
		item scrape.MediaItem
	}{
		{
			name: "extension kept",
			item: scrape.MediaItem{URL: "http://example.com/photos/cat.png", Kind: scrape.KindImage},
			want: "cat.png",
		},
		{
			name: "image default",
			item: scrape.MediaItem{URL: "http://example.com/photos/cat", Kind: scrape.KindImage},
			want: "cat.jpg",
		},
		{
			name: "video default",
			item: scrape.MediaItem{URL: "http://example.com/v/clip", Kind: scrape.KindVideo},
			want: "clip.mp4",
		},
		{
			name: "audio default",
			item: scrape.MediaItem{URL: "http://example.com/a/track", Kind: scrape.KindAudio},
			want: "track.mp3",
		},
		{
			name: "trailing slash",
			item: scrape.MediaItem{URL: "http://example.com/photos/", Kind: scrape.KindImage},
			want: "unknown.jpg",
		},
		{
			name: "query string is part of the segment",
			item: scrape.MediaItem{URL: "http://example.com/img?id=4", Kind: scrape.KindImage},
			want: "img?id=4.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.Equal(t, tt.item.Filename(), tt.want)
		})
	}
}

func TestKindString(t *testing.T) {
	test.Equal(t, scrape.KindImage.String(), "image")
	test.Equal(t, scrape.KindVideo.String(), "video")
	test.Equal(t, scrape.KindAudio.String(), "audio")
}

func TestSave(t *testing.T) {
	content := "not really a jpg"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, content)
	}))
	defer server.Close()

	client := scrape.New()
	item := scrape.MediaItem{URL: server.URL + "/shots/landing", Kind: scrape.KindImage}

	dir := filepath.Join(t.TempDir(), "media", "nested")

	err := client.Save(t.Context(), item, dir)
	test.Ok(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "landing.jpg"))
	test.Ok(t, err)
	test.DiffBytes(t, got, []byte(content))
}

func TestSaveErrors(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		client := scrape.New()
		item := scrape.MediaItem{URL: server.URL + "/a.jpg", Kind: scrape.KindImage}

		err := client.Save(t.Context(), item, t.TempDir())
		test.True(t, errors.Is(err, scrape.ErrTransport), test.Context("error = %v, want ErrTransport", err))
	})

	t.Run("io", func(t *testing.T) {
		tmp := t.TempDir()
		blocker := filepath.Join(tmp, "blocker")
		test.Ok(t, os.WriteFile(blocker, []byte("in the way"), 0o644))

		client := scrape.New()
		item := scrape.MediaItem{URL: "http://example.com/a.jpg", Kind: scrape.KindImage}

		err := client.Save(t.Context(), item, filepath.Join(blocker, "sub"))
		test.True(t, errors.Is(err, scrape.ErrIO), test.Context("error = %v, want ErrIO", err))
	})
}
