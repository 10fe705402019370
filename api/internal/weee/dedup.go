package weee

import (
	"context"
	"fmt"
	"log"
	"strings"

	"weee-bot/api/internal/vision"
)

const (
	ignoredNonEEE = "Ignorado (não EEE)"
)

type objectFlags struct {
	parent  bool
	subpart bool
	nonEEE  bool
}

func flagsFor(o *vision.DetectedObject) objectFlags {
	text := strings.ToLower(strings.TrimSpace(o.Name + " " + o.Caption))
	return objectFlags{
		parent:  tokenHits(text, parentDeviceKeywords) > 0,
		subpart: tokenHits(text, subpartKeywords) > 0,
		nonEEE:  tokenHits(text, nonEEEKeywords) > 0,
	}
}

// Deduplicate decides, per detection, whether it should be classified on its
// own or suppressed: non-EEE content that is not itself a device, and
// subparts (keyboard, cables, screen) overlapping a parent device.
// The returned slice is index-aligned; "" means keep.
func Deduplicate(objs []*vision.DetectedObject, iouMin float64) []string {
	flags := make([]objectFlags, len(objs))
	for i, o := range objs {
		flags[i] = flagsFor(o)
	}

	reasons := make([]string, len(objs))
	for i, o := range objs {
		if flags[i].nonEEE && !flags[i].parent {
			reasons[i] = ignoredNonEEE
			continue
		}
		if !flags[i].subpart {
			continue
		}
		for j, p := range objs {
			if i == j || !flags[j].parent {
				continue
			}
			if vision.IoU(o.Box, p.Box) >= iouMin {
				name := p.Name
				if name == "" {
					name = "dispositivo"
				}
				reasons[i] = fmt.Sprintf("Ignorado (parte de %s)", name)
				break
			}
		}
	}
	return reasons
}

// Item is one detection in the multi-object flow with its individual verdict.
type Item struct {
	Object   *vision.DetectedObject `json:"object"`
	Ignored  string                 `json:"ignored,omitempty"`
	Category *Category              `json:"category,omitempty"`
}

// Overview is the whole-image analysis: every retained detection classified
// on its own crop after deduplication.
type Overview struct {
	SessionID    string `json:"session_id"`
	OriginalURL  string `json:"original_url"`
	ImageCaption string `json:"image_caption,omitempty"`
	Items        []Item `json:"items"`
}

// ClassifyAll runs the multi-object flow: detect on the whole image (grid
// fallback allowed here), suppress duplicates and non-EEE regions, then
// classify each surviving crop through the full pipeline.
func (c *Classifier) ClassifyAll(ctx context.Context, imageBytes []byte, useArbiter, gridFallback bool) (*Overview, error) {
	det, err := c.Detector.Detect(ctx, imageBytes, gridFallback)
	if err != nil {
		return nil, err
	}

	reasons := Deduplicate(det.Objects, c.Params.SubpartIoU)

	ov := &Overview{
		SessionID:    det.SessionID,
		OriginalURL:  det.OriginalURL,
		ImageCaption: det.ImageCaption,
	}
	for i, obj := range det.Objects {
		item := Item{Object: obj, Ignored: reasons[i]}
		if item.Ignored == "" && obj.CropURL != "" {
			item = c.classifyItem(ctx, obj, useArbiter)
		}
		ov.Items = append(ov.Items, item)
	}
	return ov, nil
}

// classifyItem classifies one crop in isolation. A failure here loses only
// this item's category.
func (c *Classifier) classifyItem(ctx context.Context, obj *vision.DetectedObject, useArbiter bool) Item {
	item := Item{Object: obj}

	crop, err := c.Detector.Artifacts.ReadByURL(obj.CropURL)
	if err != nil {
		log.Printf("classify crop %s: read: %v", obj.CropURL, err)
		return item
	}
	res, err := c.Classify(ctx, crop, useArbiter)
	if err != nil {
		log.Printf("classify crop %s: %v", obj.CropURL, err)
		return item
	}
	if res.Filtered != nil && res.Filtered.Reason == "non_eee" {
		item.Ignored = ignoredNonEEE
		return item
	}
	item.Category = res.Category
	return item
}
