package vision

import (
	"context"
	"fmt"
	"image"
	"log"
)

// DetectedObject is one candidate region in an image.
type DetectedObject struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Box        Rect    `json:"bbox"`
	Caption    string  `json:"caption,omitempty"`
	CropURL    string  `json:"crop_url,omitempty"`
}

// Detection is the full detector output for one source image.
type Detection struct {
	SessionID    string            `json:"session_id"`
	OriginalURL  string            `json:"original_url"`
	ImageCaption string            `json:"image_caption,omitempty"`
	Objects      []*DetectedObject `json:"objects"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
}

// Params are the detector's empirical knobs. Thresholds are tuned by hand,
// not derived; keep them adjustable.
type Params struct {
	MinSide      int
	MaxSide      int
	GridSize     int
	GridMaxExtra int
	GridIoU      float64
	// Grid fallback only kicks in below this many detections.
	GridMinObjects int
}

func DefaultParams() Params {
	return Params{
		MinSide:        50,
		MaxSide:        16000,
		GridSize:       3,
		GridMaxExtra:   10,
		GridIoU:        0.2,
		GridMinObjects: 4,
	}
}

const fallbackName = "objeto"

type Detector struct {
	Client    Client
	Artifacts *ArtifactStore
	Params    Params
}

// Detect runs the whole-image analysis: scene caption, object list, one
// persisted crop plus caption per object, and an optional coarse grid scan
// when the service found almost nothing.
//
// The primary Analyze call is fatal; per-crop caption calls and per-cell grid
// calls degrade (object without caption / cell skipped).
func (d *Detector) Detect(ctx context.Context, imageBytes []byte, gridFallback bool) (*Detection, error) {
	session := d.Artifacts.NewSession()

	img, err := decodeImage(imageBytes)
	if err != nil {
		return nil, err
	}
	rgba := toRGBA(resizeToValid(img, d.Params.MinSide, d.Params.MaxSide))
	W := rgba.Bounds().Dx()
	H := rgba.Bounds().Dy()

	normalized, err := encodeJPEG(rgba)
	if err != nil {
		return nil, err
	}

	originalURL, err := d.Artifacts.SaveOriginal(session, normalized)
	if err != nil {
		log.Printf("detect: save original failed: %v", err)
	}

	analysis, err := d.Client.Analyze(ctx, normalized, []Feature{FeatureCaption, FeatureObjects})
	if err != nil {
		return nil, err
	}

	det := &Detection{
		SessionID:   session,
		OriginalURL: originalURL,
		Width:       W,
		Height:      H,
	}
	if analysis.Caption != nil {
		det.ImageCaption = analysis.Caption.Text
	}

	for _, raw := range analysis.Objects {
		det.Objects = append(det.Objects, objectFromRaw(raw))
	}

	for i, obj := range det.Objects {
		clipped := obj.Box.Clip(W, H)
		if clipped.W <= 0 || clipped.H <= 0 {
			continue
		}
		crop := cropRegion(rgba, clipped)
		d.attachCrop(ctx, session, fmt.Sprintf("obj_%03d", i), crop, obj)
	}

	if gridFallback && len(det.Objects) < d.Params.GridMinObjects {
		d.gridScan(ctx, session, rgba, det)
	}

	return det, nil
}

// objectFromRaw resolves name/confidence: the direct fields win, the first
// tag is the fallback, and an unlabeled detection becomes a zero-confidence
// generic object.
func objectFromRaw(raw RawObject) *DetectedObject {
	name := raw.Name
	conf := raw.Confidence
	if (name == "" || conf == nil) && len(raw.Tags) > 0 {
		if name == "" {
			name = raw.Tags[0].Name
		}
		if conf == nil {
			c := raw.Tags[0].Confidence
			conf = &c
		}
	}
	if name == "" {
		name = fallbackName
	}
	o := &DetectedObject{Name: name, Box: raw.Box}
	if conf != nil {
		o.Confidence = *conf
	}
	return o
}

func cropRegion(rgba *image.RGBA, r Rect) image.Image {
	return rgba.SubImage(image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H))
}

// attachCrop persists the crop and asks the service for a region caption.
// Both steps are best-effort for a single object.
func (d *Detector) attachCrop(ctx context.Context, session, name string, crop image.Image, obj *DetectedObject) {
	data, err := encodeJPEG(crop)
	if err != nil {
		log.Printf("detect: encode crop %s: %v", name, err)
		return
	}
	if url, err := d.Artifacts.SaveCrop(session, name, data); err != nil {
		log.Printf("detect: save crop %s: %v", name, err)
	} else {
		obj.CropURL = url
	}

	// The crop itself may be below the service's minimum side.
	valid, err := encodeJPEG(resizeToValid(crop, d.Params.MinSide, d.Params.MaxSide))
	if err != nil {
		return
	}
	an, err := d.Client.Analyze(ctx, valid, []Feature{FeatureCaption})
	if err != nil {
		log.Printf("detect: caption for %s failed: %v", name, err)
		return
	}
	if an.Caption != nil {
		obj.Caption = an.Caption.Text
	}
}

// gridScan partitions the image into GridSize×GridSize cells (last row and
// column absorb the remainder) and captions the cells not already covered by
// a detection, synthesizing zero-confidence objects from novel captions.
func (d *Detector) gridScan(ctx context.Context, session string, rgba *image.RGBA, det *Detection) {
	W, H := det.Width, det.Height
	n := d.Params.GridSize
	if n < 1 {
		return
	}
	cellW := W / n
	cellH := H / n

	seen := make(map[string]bool)
	for _, o := range det.Objects {
		if o.Caption != "" {
			seen[o.Caption] = true
		}
	}

	added := 0
	for gy := 0; gy < n && added < d.Params.GridMaxExtra; gy++ {
		for gx := 0; gx < n && added < d.Params.GridMaxExtra; gx++ {
			cell := Rect{X: gx * cellW, Y: gy * cellH, W: cellW, H: cellH}
			if gx == n-1 {
				cell.W = W - cell.X
			}
			if gy == n-1 {
				cell.H = H - cell.Y
			}
			if cell.W < d.Params.MinSide || cell.H < d.Params.MinSide {
				continue
			}
			if d.overlapsExisting(cell, det.Objects) {
				continue
			}

			crop := cropRegion(rgba, cell)
			valid, err := encodeJPEG(resizeToValid(crop, d.Params.MinSide, d.Params.MaxSide))
			if err != nil {
				continue
			}
			an, err := d.Client.Analyze(ctx, valid, []Feature{FeatureCaption})
			if err != nil {
				// A failed cell is just skipped; the scan is opportunistic.
				log.Printf("detect: grid cell (%d,%d) failed: %v", gx, gy, err)
				continue
			}
			if an.Caption == nil || an.Caption.Text == "" || seen[an.Caption.Text] {
				continue
			}

			obj := &DetectedObject{
				Name:       an.Caption.Text,
				Confidence: 0.0,
				Box:        cell,
				Caption:    an.Caption.Text,
			}
			if data, err := encodeJPEG(crop); err == nil {
				if url, err := d.Artifacts.SaveCrop(session, fmt.Sprintf("extra_%03d", added), data); err == nil {
					obj.CropURL = url
				}
			}
			det.Objects = append(det.Objects, obj)
			seen[an.Caption.Text] = true
			added++
		}
	}
}

func (d *Detector) overlapsExisting(cell Rect, objs []*DetectedObject) bool {
	for _, o := range objs {
		if IoU(cell, o.Box) > d.Params.GridIoU {
			return true
		}
	}
	return false
}
