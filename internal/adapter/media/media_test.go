package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/logger"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestLoader(origin string) *Loader {
	cfg := DefaultConfig()
	cfg.Origin = origin
	return NewLoader(cfg, nil, logger.NewTestLogger())
}

func TestResolve(t *testing.T) {
	l := newTestLoader("https://studio.example")

	tests := []struct {
		ref  string
		want string
	}{
		{"/tmp/cover.png", "/tmp/cover.png"},
		{"https://studio.example/audio/cover.png", "https://studio.example/audio/cover.png"},
		{"https://cdn.other/a b.png", "https://studio.example/api/proxy/image?url=https%3A%2F%2Fcdn.other%2Fa+b.png"},
		{"http://studio.example/x.png", "https://studio.example/api/proxy/image?url=http%3A%2F%2Fstudio.example%2Fx.png"},
	}
	for _, tt := range tests {
		got, err := l.Resolve(tt.ref)
		require.NoError(t, err, tt.ref)
		assert.Equal(t, tt.want, got, tt.ref)
	}

	direct := newTestLoader("")
	got, err := direct.Resolve("https://cdn.other/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.other/a.png", got, "no origin means no proxy")
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bg.png")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))

	l := newTestLoader("")
	data, err := l.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	_, err = l.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, domain.ErrMediaUnavailable)

	_, err = l.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMediaUnavailable)
}

func TestLoadImageThroughProxy(t *testing.T) {
	cover := pngBytes(t, 4, 3, color.NRGBA{R: 200, A: 255})
	var proxied string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/proxy/image":
			proxied = r.URL.Query().Get("url")
			_, _ = w.Write(cover)
		case "/local.png":
			_, _ = w.Write(cover)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := newTestLoader(srv.URL)

	img, err := l.LoadImage(context.Background(), "https://cdn.other/cover.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.other/cover.png", proxied)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())

	_, err = l.LoadImage(context.Background(), srv.URL+"/local.png")
	require.NoError(t, err)

	_, err = l.LoadImage(context.Background(), srv.URL+"/gone.png")
	assert.ErrorIs(t, err, domain.ErrMediaUnavailable)
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := DecodeImage([]byte("not an image"))
	assert.ErrorIs(t, err, domain.ErrMediaUnavailable)
}

func TestVideoArgs(t *testing.T) {
	args := VideoArgs("bg.mp4", 640, 360, 30)
	assert.Equal(t, []string{
		"-v", "quiet", "-stream_loop", "-1", "-i", "bg.mp4", "-an",
		"-vf", "scale=640:360:force_original_aspect_ratio=increase,crop=640:360,fps=30",
		"-f", "rawvideo", "-pix_fmt", "rgba", "pipe:1",
	}, args)
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

// rawFrames returns n 2x2 RGBA frames whose red channel is the frame index.
func rawFrames(n int) []byte {
	var buf bytes.Buffer
	for i := range n {
		for range 4 {
			buf.Write([]byte{uint8(i), 0, 0, 255})
		}
	}
	return buf.Bytes()
}

func TestVideoSourceSkipsToDueFrame(t *testing.T) {
	stream := &closeRecorder{Reader: bytes.NewReader(rawFrames(5))}
	l := newTestLoader("")
	var gotLoc string
	l.startVideo = func(_ context.Context, loc string, w, h, fps int) (io.ReadCloser, error) {
		gotLoc = loc
		return stream, nil
	}

	src, err := l.OpenVideo(context.Background(), "bg.mp4", 2, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, "bg.mp4", gotLoc)

	red := func(img image.Image) uint8 { return img.(*image.RGBA).Pix[0] }

	ctx := context.Background()
	require.NotNil(t, src.AwaitFrame(ctx, 0))
	assert.Equal(t, uint8(0), red(src.AwaitFrame(ctx, 0)))
	assert.Equal(t, uint8(0), red(src.AwaitFrame(ctx, 50*time.Millisecond)))
	assert.Equal(t, uint8(2), red(src.AwaitFrame(ctx, 200*time.Millisecond)))
	assert.Equal(t, uint8(4), red(src.AwaitFrame(ctx, time.Second)), "the last frame stays when the stream ends")
	assert.Equal(t, uint8(4), red(src.FrameAt(2*time.Second)))

	require.NoError(t, src.Close())
	assert.True(t, stream.closed)
	assert.Error(t, src.Close())
}

func TestVideoSourceFrameAtDoesNotWaitForDecoder(t *testing.T) {
	pr, pw := io.Pipe()
	l := newTestLoader("")
	l.startVideo = func(context.Context, string, int, int, int) (io.ReadCloser, error) {
		return pr, nil
	}
	src, err := l.OpenVideo(context.Background(), "bg.mp4", 2, 2, 10)
	require.NoError(t, err)

	returned := make(chan image.Image, 1)
	go func() { returned <- src.FrameAt(0) }()
	select {
	case img := <-returned:
		assert.Nil(t, img, "nothing decoded yet")
	case <-time.After(time.Second):
		t.Fatal("FrameAt blocked on the decoder")
	}

	_, err = pw.Write(rawFrames(1))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return src.FrameAt(0) != nil }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotNil(t, src.AwaitFrame(ctx, time.Second), "a cancelled wait returns the newest frame")

	require.NoError(t, src.Close())
}

func TestOpenVideoValidatesSize(t *testing.T) {
	_, err := newTestLoader("").OpenVideo(context.Background(), "bg.mp4", 0, 10, 30)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
