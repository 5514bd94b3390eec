// Package smartcropper finds the regions of an image worth cropping to and
// writes each one to its own file.
//
// A request names a source image and optional settings. The image is loaded
// and turned upright using the orientation stored in its metadata. A
// detector then proposes regions and every proposal becomes a cropped file
// plus a result record.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		smartcropper "github.com/menta2k/smart-cropper"
//		"github.com/menta2k/smart-cropper/pkg/options"
//		"github.com/menta2k/smart-cropper/pkg/types"
//	)
//
//	func main() {
//		client, err := smartcropper.NewLocal()
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		results, err := client.Request(context.Background(), options.Options{
//			Path:     "photo.jpg",
//			CropType: options.Int(int(types.CropObjectness)),
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		for _, r := range results {
//			fmt.Printf("%s (confidence %.2f)\n", r.Path, r.Confidence)
//		}
//	}
//
// The package consists of these components:
//
//  1. Options (pkg/options): defaults and validation of a request
//  2. Detection (pkg/detection): local and model backed region proposals
//  3. Cropper (pkg/cropper): geometry, cropping, encoding and writing
//
// Results either cover every proposal or the request fails with an
// *errs.Error and leaves no files behind.
package smartcropper

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/menta2k/smart-cropper/pkg/cropper"
	"github.com/menta2k/smart-cropper/pkg/detection"
	"github.com/menta2k/smart-cropper/pkg/options"
	"github.com/menta2k/smart-cropper/pkg/types"
)

// Version of the smart cropper library
const Version = "1.0.0"

// Client serves crop requests
type Client struct {
	cropper *cropper.SmartCropper
}

// New creates a client over detector
func New(detector detection.Detector, opts ...cropper.Option) (*Client, error) {
	c, err := cropper.New(detector, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{cropper: c}, nil
}

// NewLocal creates a client backed by the in-process detection engine
func NewLocal(opts ...cropper.Option) (*Client, error) {
	return New(detection.NewEngine(detection.DefaultEngineConfig()), opts...)
}

// OutputDir returns the directory crops are written to
func (c *Client) OutputDir() string {
	return c.cropper.OutputDir()
}

// Request validates opts and runs the crop pipeline
func (c *Client) Request(ctx context.Context, opts options.Options) ([]types.CropResult, error) {
	req, err := options.Normalize(opts)
	if err != nil {
		return nil, err
	}
	return c.cropper.Run(ctx, req)
}

// RequestAsync validates opts and starts the pipeline in the background.
// Validation errors are returned immediately.
func (c *Client) RequestAsync(ctx context.Context, opts options.Options) (*Future, error) {
	req, err := options.Normalize(opts)
	if err != nil {
		return nil, err
	}

	f := &Future{done: make(chan struct{})}
	go func() {
		results, err := c.cropper.Run(ctx, req)
		f.resolve(results, err)
	}()
	return f, nil
}

// RequestJSON decodes a wire request, runs it and encodes the result array
func (c *Client) RequestJSON(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := options.Parse(payload)
	if err != nil {
		return nil, err
	}

	results, err := c.cropper.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(results)
}

// Future is the pending outcome of RequestAsync
type Future struct {
	once    sync.Once
	done    chan struct{}
	results []types.CropResult
	err     error
}

func (f *Future) resolve(results []types.CropResult, err error) {
	f.once.Do(func() {
		f.results = results
		f.err = err
		close(f.done)
	})
}

// Done is closed once the request has finished
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the request finishes or ctx is done. Giving up on the
// wait does not stop the request.
func (f *Future) Await(ctx context.Context) ([]types.CropResult, error) {
	select {
	case <-f.done:
		return f.results, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
