// Package frame takes a single still image from a camera URL.
package frame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrUnavailable wraps every failure to obtain a frame from the camera.
var ErrUnavailable = errors.New("frame: camera unavailable")

// DefaultMaxBytes bounds a single frame.
const DefaultMaxBytes = 10 << 20

// Frame is one encoded still image as delivered by the camera.
type Frame struct {
	Data        []byte
	ContentType string
}

// Grabber fetches frames over HTTP. Plain image responses are read whole;
// multipart/x-mixed-replace (MJPEG) streams yield their first part.
type Grabber struct {
	http     *resty.Client
	maxBytes int64
}

// NewGrabber creates a grabber. timeout <= 0 leaves the deadline to the caller's context.
func NewGrabber(timeout time.Duration, maxBytes int64) *Grabber {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	}
	r.SetHeader("Accept", "image/jpeg, image/png, multipart/x-mixed-replace, */*")
	return &Grabber{http: r, maxBytes: maxBytes}
}

// Grab fetches one frame from url.
func (g *Grabber) Grab(ctx context.Context, url string) (Frame, error) {
	resp, err := g.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return Frame{}, fmt.Errorf("%w: camera returned %s", ErrUnavailable, resp.Status())
	}

	contentType := resp.Header().Get("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(contentType)

	if strings.HasPrefix(mediaType, "multipart/") {
		return g.firstPart(body, params["boundary"])
	}

	data, err := g.readBounded(body)
	if err != nil {
		return Frame{}, err
	}
	return newFrame(data, mediaType)
}

func (g *Grabber) firstPart(body io.Reader, boundary string) (Frame, error) {
	if boundary == "" {
		return Frame{}, fmt.Errorf("%w: multipart stream without boundary", ErrUnavailable)
	}

	mr := multipart.NewReader(body, strings.TrimPrefix(boundary, "--"))
	part, err := mr.NextPart()
	if err != nil {
		return Frame{}, fmt.Errorf("%w: failed to read first stream part: %v", ErrUnavailable, err)
	}
	defer part.Close()

	data, err := g.readBounded(part)
	if err != nil {
		return Frame{}, err
	}
	mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
	return newFrame(data, mediaType)
}

func (g *Grabber) readBounded(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, g.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read frame: %v", ErrUnavailable, err)
	}
	if int64(len(data)) > g.maxBytes {
		return nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrUnavailable, g.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrUnavailable)
	}
	return data, nil
}

func newFrame(data []byte, mediaType string) (Frame, error) {
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return Frame{}, fmt.Errorf("%w: unexpected content type %q", ErrUnavailable, mediaType)
	}
	return Frame{Data: data, ContentType: mediaType}, nil
}
