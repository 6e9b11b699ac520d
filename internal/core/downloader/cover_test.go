package downloader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"spots/internal/shared"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestResizeImage(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"wide", 800, 400, 640, 320},
		{"tall", 300, 1280, 150, 640},
		{"small", 100, 50, 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ResizeImage(pngBytes(t, tt.width, tt.height), 640, 640)
			if err != nil {
				t.Fatalf("ResizeImage() error = %v", err)
			}
			img, err := jpeg.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("output is not a jpeg: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestResizeImageRejectsGarbage(t *testing.T) {
	if _, err := ResizeImage([]byte("not an image"), 640, 640); err == nil {
		t.Error("expected an error")
	}
}

func TestCoverFetcher(t *testing.T) {
	data := pngBytes(t, 1000, 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer server.Close()

	fetcher := NewCoverFetcher(server.Client(), 300)
	cover, err := fetcher.Fetch(context.Background(), server.URL+"/cover.png")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(cover))
	if err != nil {
		t.Fatalf("cover is not a jpeg: %v", err)
	}
	if cfg.Width != 300 || cfg.Height != 300 {
		t.Errorf("cover is %dx%d", cfg.Width, cfg.Height)
	}

	_, err = fetcher.Fetch(context.Background(), server.URL+"/missing.png")
	var httpErr *shared.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("error = %v, want a 404 HTTPError", err)
	}
}
