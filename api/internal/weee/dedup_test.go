package weee

import (
	"context"
	"testing"

	"weee-bot/api/internal/vision"
)

func TestDeduplicate(t *testing.T) {
	t.Parallel()

	laptop := &vision.DetectedObject{
		Name: "laptop", Confidence: 0.9,
		Box: vision.Rect{X: 0, Y: 0, W: 100, H: 100},
	}
	keyboard := &vision.DetectedObject{
		Name: "keyboard", Confidence: 0.8,
		Box: vision.Rect{X: 0, Y: 60, W: 100, H: 60}, // IoU with laptop = 1/3
	}
	farKeyboard := &vision.DetectedObject{
		Name: "keyboard", Confidence: 0.7,
		Box: vision.Rect{X: 300, Y: 300, W: 50, H: 50},
	}
	dog := &vision.DetectedObject{
		Name: "dog", Confidence: 0.95,
		Box: vision.Rect{X: 200, Y: 0, W: 80, H: 80},
	}

	reasons := Deduplicate([]*vision.DetectedObject{laptop, keyboard, farKeyboard, dog}, 0.2)

	if reasons[0] != "" {
		t.Errorf("parent device suppressed: %q", reasons[0])
	}
	if reasons[1] != "Ignorado (parte de laptop)" {
		t.Errorf("overlapping subpart reason = %q", reasons[1])
	}
	if reasons[2] != "" {
		t.Errorf("non-overlapping subpart suppressed: %q", reasons[2])
	}
	if reasons[3] != ignoredNonEEE {
		t.Errorf("non-EEE reason = %q, want %q", reasons[3], ignoredNonEEE)
	}
}

func TestDeduplicateParentFromCaption(t *testing.T) {
	t.Parallel()

	// The parent signal can come from the crop caption; an unnamed parent
	// still suppresses its subparts, under a generic label.
	parent := &vision.DetectedObject{
		Caption: "a laptop on a desk",
		Box:     vision.Rect{X: 0, Y: 0, W: 100, H: 100},
	}
	screen := &vision.DetectedObject{
		Name: "screen",
		Box:  vision.Rect{X: 0, Y: 0, W: 100, H: 60},
	}

	reasons := Deduplicate([]*vision.DetectedObject{parent, screen}, 0.2)
	if reasons[1] != "Ignorado (parte de dispositivo)" {
		t.Errorf("reason = %q", reasons[1])
	}
}

func TestDeduplicateSubpartBelowThreshold(t *testing.T) {
	t.Parallel()

	laptop := &vision.DetectedObject{
		Name: "laptop",
		Box:  vision.Rect{X: 0, Y: 0, W: 100, H: 100},
	}
	cable := &vision.DetectedObject{
		Name: "cable",
		Box:  vision.Rect{X: 95, Y: 95, W: 100, H: 100}, // barely touches
	}

	reasons := Deduplicate([]*vision.DetectedObject{laptop, cable}, 0.2)
	if reasons[1] != "" {
		t.Errorf("low-overlap subpart suppressed: %q", reasons[1])
	}
}

func TestClassifyAll(t *testing.T) {
	t.Parallel()

	cl := &fakeVision{
		full: &vision.Analysis{
			Caption: &vision.Caption{Text: "a kitchen"},
			Objects: []vision.RawObject{
				{Box: vision.Rect{X: 10, Y: 10, W: 100, H: 100}, Name: "refrigerator", Confidence: confPtr(0.9)},
				{Box: vision.Rect{X: 150, Y: 150, W: 40, H: 40}, Name: "dog", Confidence: confPtr(0.8)},
			},
		},
	}
	c := newTestClassifier(t, cl)

	ov, err := c.ClassifyAll(context.Background(), jpegBytes(t, 200, 200), false, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(ov.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(ov.Items))
	}

	fridge := ov.Items[0]
	if fridge.Ignored != "" {
		t.Fatalf("fridge ignored: %q", fridge.Ignored)
	}
	if fridge.Category == nil || fridge.Category.ID != 1 {
		t.Errorf("fridge category = %+v, want id 1", fridge.Category)
	}

	dog := ov.Items[1]
	if dog.Ignored != ignoredNonEEE {
		t.Errorf("dog ignored = %q, want %q", dog.Ignored, ignoredNonEEE)
	}
	if dog.Category != nil {
		t.Errorf("dog category = %+v, want nil", dog.Category)
	}
}
