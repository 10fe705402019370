package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"testing"
)

// fakeClient scripts the vision service: one response for the whole-image
// call, a queue of captions for the region calls.
type fakeClient struct {
	full        *Analysis
	fullErr     error
	captions    []string
	captionErr  error
	captionCall int
}

func (f *fakeClient) Analyze(_ context.Context, _ []byte, features []Feature) (*Analysis, error) {
	for _, ft := range features {
		if ft == FeatureObjects {
			return f.full, f.fullErr
		}
	}
	f.captionCall++
	if f.captionErr != nil {
		return nil, f.captionErr
	}
	if len(f.captions) == 0 {
		return &Analysis{}, nil
	}
	text := f.captions[0]
	f.captions = f.captions[1:]
	if text == "" {
		return &Analysis{}, nil
	}
	return &Analysis{Caption: &Caption{Text: text, Confidence: 0.5}}, nil
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestDetector(t *testing.T, cl Client) *Detector {
	t.Helper()
	return &Detector{
		Client:    cl,
		Artifacts: NewArtifactStore(t.TempDir()),
		Params:    DefaultParams(),
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestObjectFromRaw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      RawObject
		wantName string
		wantConf float64
	}{
		{
			name:     "direct fields win",
			raw:      RawObject{Name: "laptop", Confidence: floatPtr(0.9), Tags: []Tag{{Name: "computer", Confidence: 0.5}}},
			wantName: "laptop",
			wantConf: 0.9,
		},
		{
			name:     "tag fallback",
			raw:      RawObject{Tags: []Tag{{Name: "computer", Confidence: 0.7}}},
			wantName: "computer",
			wantConf: 0.7,
		},
		{
			name:     "name direct confidence from tag",
			raw:      RawObject{Name: "laptop", Tags: []Tag{{Name: "computer", Confidence: 0.6}}},
			wantName: "laptop",
			wantConf: 0.6,
		},
		{
			name:     "nothing at all",
			raw:      RawObject{},
			wantName: "objeto",
			wantConf: 0.0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := objectFromRaw(tc.raw)
			if got.Name != tc.wantName || got.Confidence != tc.wantConf {
				t.Errorf("objectFromRaw = %q/%v, want %q/%v", got.Name, got.Confidence, tc.wantName, tc.wantConf)
			}
		})
	}
}

func TestDetectPrimaryFailureIsFatal(t *testing.T) {
	t.Parallel()

	cl := &fakeClient{fullErr: &APIError{Status: 503, Body: "unavailable"}}
	d := newTestDetector(t, cl)

	_, err := d.Detect(context.Background(), jpegBytes(t, 300, 300), false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Detect = %v, want APIError", err)
	}
}

func TestDetectBadBytes(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t, &fakeClient{})
	_, err := d.Detect(context.Background(), []byte("nope"), false)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Detect(garbage) = %v, want ErrDecode", err)
	}
}

func TestDetectCropsAndCaptions(t *testing.T) {
	t.Parallel()

	cl := &fakeClient{
		full: &Analysis{
			Caption: &Caption{Text: "a desk with electronics"},
			Objects: []RawObject{
				{Box: Rect{X: 10, Y: 10, W: 100, H: 100}, Name: "laptop", Confidence: floatPtr(0.9)},
				{Box: Rect{X: 400, Y: 400, W: 50, H: 50}, Name: "phone", Confidence: floatPtr(0.8)},
			},
		},
		captions: []string{"an open laptop", "a phone on the desk"},
	}
	d := newTestDetector(t, cl)

	det, err := d.Detect(context.Background(), jpegBytes(t, 300, 300), false)
	if err != nil {
		t.Fatal(err)
	}
	if det.ImageCaption != "a desk with electronics" {
		t.Errorf("ImageCaption = %q", det.ImageCaption)
	}
	if len(det.Objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(det.Objects))
	}

	first := det.Objects[0]
	if first.Caption != "an open laptop" {
		t.Errorf("first caption = %q", first.Caption)
	}
	if first.CropURL == "" {
		t.Error("first object has no crop url")
	}
	if _, err := d.Artifacts.ReadByURL(first.CropURL); err != nil {
		t.Errorf("crop not readable: %v", err)
	}

	// The second box lies outside the 300x300 image; its crop is dropped.
	second := det.Objects[1]
	if second.CropURL != "" || second.Caption != "" {
		t.Errorf("out-of-bounds object got crop=%q caption=%q", second.CropURL, second.Caption)
	}
}

func TestDetectCaptionFailureDegrades(t *testing.T) {
	t.Parallel()

	cl := &fakeClient{
		full: &Analysis{
			Caption: &Caption{Text: "scene"},
			Objects: []RawObject{{Box: Rect{X: 0, Y: 0, W: 100, H: 100}, Name: "tv", Confidence: floatPtr(0.7)}},
		},
		captionErr: errors.New("caption backend down"),
	}
	d := newTestDetector(t, cl)

	det, err := d.Detect(context.Background(), jpegBytes(t, 300, 300), false)
	if err != nil {
		t.Fatalf("caption failure must not be fatal: %v", err)
	}
	obj := det.Objects[0]
	if obj.Caption != "" {
		t.Errorf("caption = %q, want empty", obj.Caption)
	}
	if obj.CropURL == "" {
		t.Error("crop should still be persisted")
	}
}

func TestDetectGridFallback(t *testing.T) {
	t.Parallel()

	captions := []string{"an open laptop"} // object crop
	for i := 0; i < 8; i++ {
		captions = append(captions, fmt.Sprintf("cell %d", i))
	}
	cl := &fakeClient{
		full: &Analysis{
			Caption: &Caption{Text: "scene"},
			Objects: []RawObject{{Box: Rect{X: 0, Y: 0, W: 90, H: 90}, Name: "laptop", Confidence: floatPtr(0.9)}},
		},
		captions: captions,
	}
	d := newTestDetector(t, cl)

	det, err := d.Detect(context.Background(), jpegBytes(t, 300, 300), true)
	if err != nil {
		t.Fatal(err)
	}

	// Cell (0,0) overlaps the laptop above the IoU threshold; the other 8
	// cells produce distinct captions.
	if len(det.Objects) != 9 {
		t.Fatalf("got %d objects, want 9", len(det.Objects))
	}
	for _, o := range det.Objects[1:] {
		if o.Confidence != 0.0 {
			t.Errorf("grid object %q confidence = %v, want 0", o.Name, o.Confidence)
		}
		if o.Name != o.Caption {
			t.Errorf("grid object name %q != caption %q", o.Name, o.Caption)
		}
	}
}

func TestDetectGridSkipsDuplicateCaptions(t *testing.T) {
	t.Parallel()

	captions := []string{"an open laptop", "wall", "wall", "wall", "", "floor", "wall", "wall", "wall"}
	cl := &fakeClient{
		full: &Analysis{
			Caption: &Caption{Text: "scene"},
			Objects: []RawObject{{Box: Rect{X: 0, Y: 0, W: 90, H: 90}, Name: "laptop", Confidence: floatPtr(0.9)}},
		},
		captions: captions,
	}
	d := newTestDetector(t, cl)

	det, err := d.Detect(context.Background(), jpegBytes(t, 300, 300), true)
	if err != nil {
		t.Fatal(err)
	}
	// Only "wall" and "floor" survive the dedup of cell captions.
	if len(det.Objects) != 3 {
		t.Fatalf("got %d objects, want 3", len(det.Objects))
	}
}

func TestDetectGridDisabledWithEnoughObjects(t *testing.T) {
	t.Parallel()

	objs := make([]RawObject, 4)
	for i := range objs {
		objs[i] = RawObject{
			Box:        Rect{X: i * 60, Y: 0, W: 50, H: 50},
			Name:       fmt.Sprintf("item %d", i),
			Confidence: floatPtr(0.5),
		}
	}
	cl := &fakeClient{
		full:     &Analysis{Objects: objs},
		captions: []string{"a", "b", "c", "d", "x", "y", "z"},
	}
	d := newTestDetector(t, cl)

	det, err := d.Detect(context.Background(), jpegBytes(t, 300, 300), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(det.Objects) != 4 {
		t.Fatalf("grid ran despite 4 detections: %d objects", len(det.Objects))
	}
}

func TestDetectGridCellErrorsAreSkipped(t *testing.T) {
	t.Parallel()

	cl := &fakeClient{
		full:       &Analysis{Caption: &Caption{Text: "scene"}},
		captionErr: errors.New("transient"),
	}
	d := newTestDetector(t, cl)

	det, err := d.Detect(context.Background(), jpegBytes(t, 300, 300), true)
	if err != nil {
		t.Fatalf("grid cell errors must not be fatal: %v", err)
	}
	if len(det.Objects) != 0 {
		t.Errorf("got %d objects, want 0", len(det.Objects))
	}
}
