package weee

import (
	"context"
	"log"
	"strings"

	"weee-bot/api/internal/vision"
)

// Params are the classifier's empirical thresholds.
type Params struct {
	NonEEEMinHits  int
	LargeSizeRatio float64
	SubpartIoU     float64
}

func DefaultParams() Params {
	return Params{
		NonEEEMinHits:  2,
		LargeSizeRatio: 0.20,
		SubpartIoU:     0.2,
	}
}

const (
	BucketLarge = "large"
	BucketSmall = "small"
)

const (
	SourceKeywords     = "keywords"
	SourceSizeFallback = "size_fallback"
	SourceLLMArbiter   = "llm_arbiter"
)

// Evidence records which signal path produced a category.
type Evidence struct {
	Source     string      `json:"source"`
	Scores     map[int]int `json:"scores,omitempty"`
	Text       string      `json:"text,omitempty"`
	SizeBucket string      `json:"size_bucket,omitempty"`
	LLMText    string      `json:"llm_text,omitempty"`
}

// RuleChoice is the rule classifier's verdict for one image.
type RuleChoice struct {
	CategoryID   int      `json:"category_id"`
	CategoryName string   `json:"category_name"`
	Score        int      `json:"score"`
	Evidence     Evidence `json:"evidence"`
}

// Filtered replaces a category when the non-EEE filter fires.
type Filtered struct {
	Reason string `json:"reason"`
	Text   string `json:"text"`
}

// SizeInfo is the size estimator's output for the selected object.
type SizeInfo struct {
	ImageW int          `json:"image_w"`
	ImageH int          `json:"image_h"`
	Box    *vision.Rect `json:"object_bbox,omitempty"`
	Ratio  float64      `json:"size_ratio,omitempty"`
	Bucket string       `json:"size_bucket,omitempty"`
}

// Result is one classification outcome. Exactly one of Category/Filtered is
// set unless an upstream error aborted the request.
type Result struct {
	SessionID    string                   `json:"session_id"`
	OriginalURL  string                   `json:"original_url"`
	ImageCaption string                   `json:"image_caption,omitempty"`
	TopObject    *vision.DetectedObject   `json:"top_object"`
	Objects      []*vision.DetectedObject `json:"objects,omitempty"`
	Size         *SizeInfo                `json:"size,omitempty"`
	Rules        *RuleChoice              `json:"rules,omitempty"`
	Category     *Category                `json:"category"`
	Confidence   float64                  `json:"confidence"`
	Filtered     *Filtered                `json:"filtered,omitempty"`
	Explanation  *Evidence                `json:"explanation,omitempty"`
}

// Decision is an arbiter's answer. The zero value means "no opinion".
type Decision struct {
	CategoryID int
	Rationale  string
}

func (d Decision) Declined() bool { return d.CategoryID == 0 }

// Arbiter may override the rule-based category. Implementations are
// best-effort: an error counts as declining.
type Arbiter interface {
	Decide(ctx context.Context, rule RuleChoice, size *SizeInfo, imageCaption string, top *vision.DetectedObject) (Decision, error)
}

type Classifier struct {
	Detector *vision.Detector
	Arbiter  Arbiter
	Params   Params
}

// Classify runs the single-image pipeline: detect, select the top object,
// estimate size, filter non-EEE, score the rules and optionally arbitrate.
// Grid fallback stays off here so crops below the minimum side never recurse.
func (c *Classifier) Classify(ctx context.Context, imageBytes []byte, useArbiter bool) (*Result, error) {
	det, err := c.Detector.Detect(ctx, imageBytes, false)
	if err != nil {
		return nil, err
	}
	return c.classifyDetection(ctx, det, useArbiter), nil
}

func (c *Classifier) classifyDetection(ctx context.Context, det *vision.Detection, useArbiter bool) *Result {
	top := pickTopObject(det.Objects)
	size := estimateSize(det.Width, det.Height, top, c.Params.LargeSizeRatio)

	combined := combinedText(det.ImageCaption, top)
	scores := scoreCategories(combined)

	res := &Result{
		SessionID:    det.SessionID,
		OriginalURL:  det.OriginalURL,
		ImageCaption: det.ImageCaption,
		TopObject:    top,
		Objects:      det.Objects,
		Size:         size,
	}
	if top != nil {
		res.Confidence = top.Confidence
	}

	if isNonEEE(combined, scores, c.Params.NonEEEMinHits) {
		res.Filtered = &Filtered{Reason: "non_eee", Text: combined}
		return res
	}

	bucket := ""
	if size != nil {
		bucket = size.Bucket
	}
	rule := ruleClassify(scores, combined, bucket)
	res.Rules = &rule

	final := rule
	if useArbiter && c.Arbiter != nil {
		if dec, err := c.Arbiter.Decide(ctx, rule, size, det.ImageCaption, top); err != nil {
			log.Printf("arbiter declined with error: %v", err)
		} else if !dec.Declined() {
			final = RuleChoice{
				CategoryID:   dec.CategoryID,
				CategoryName: CategoryName(dec.CategoryID),
				Score:        rule.Score,
				Evidence:     Evidence{Source: SourceLLMArbiter, LLMText: dec.Rationale},
			}
		}
	}

	res.Category = &Category{ID: final.CategoryID, Name: final.CategoryName}
	ev := final.Evidence
	res.Explanation = &ev
	return res
}

// pickTopObject returns the most confident detection. An exact tie goes to
// the captioned object when the current best has none; otherwise first wins.
func pickTopObject(objects []*vision.DetectedObject) *vision.DetectedObject {
	if len(objects) == 0 {
		return nil
	}
	best := objects[0]
	for _, o := range objects[1:] {
		switch {
		case o.Confidence > best.Confidence:
			best = o
		case o.Confidence == best.Confidence && o.Caption != "" && best.Caption == "":
			best = o
		}
	}
	return best
}

// estimateSize buckets the selected object's area ratio against the whole
// image. Nil object means no size data.
func estimateSize(imgW, imgH int, top *vision.DetectedObject, largeRatio float64) *SizeInfo {
	if top == nil {
		return &SizeInfo{ImageW: imgW, ImageH: imgH}
	}
	iw, ih := max(1, imgW), max(1, imgH)
	bw, bh := max(1, top.Box.W), max(1, top.Box.H)
	ratio := float64(bw*bh) / float64(iw*ih)
	bucket := BucketSmall
	if ratio >= largeRatio {
		bucket = BucketLarge
	}
	box := top.Box
	return &SizeInfo{ImageW: imgW, ImageH: imgH, Box: &box, Ratio: ratio, Bucket: bucket}
}

func combinedText(imageCaption string, top *vision.DetectedObject) string {
	var parts []string
	if top != nil {
		if top.Name != "" {
			parts = append(parts, top.Name)
		}
		if top.Caption != "" {
			parts = append(parts, top.Caption)
		}
	}
	if imageCaption != "" {
		parts = append(parts, imageCaption)
	}
	return strings.Join(parts, " | ")
}

func tokenHits(text string, kws []string) int {
	t := strings.ToLower(strings.TrimSpace(text))
	n := 0
	for _, k := range kws {
		if strings.Contains(t, k) {
			n++
		}
	}
	return n
}

func scoreCategories(text string) map[int]int {
	scores := make(map[int]int, len(keywords))
	for id, kws := range keywords {
		scores[id] = tokenHits(text, kws)
	}
	return scores
}

// isNonEEE filters content with no electronics signal at all. A single weak
// non-EEE match is not enough; ambiguous captions trip that too easily.
func isNonEEE(text string, scores map[int]int, minHits int) bool {
	for _, s := range scores {
		if s > 0 {
			return false
		}
	}
	return tokenHits(text, nonEEEKeywords) >= minHits
}

// ruleClassify picks a category from the keyword scores, falling back to the
// size bucket when nothing matched.
func ruleClassify(scores map[int]int, combined, sizeBucket string) RuleChoice {
	best := 0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}

	if best == 0 {
		id := 5
		if sizeBucket == BucketLarge {
			id = 4
		}
		return RuleChoice{
			CategoryID:   id,
			CategoryName: CategoryName(id),
			Score:        1,
			Evidence:     Evidence{Source: SourceSizeFallback, SizeBucket: sizeBucket, Text: combined},
		}
	}

	for _, id := range preferenceOrder {
		if scores[id] == best {
			return RuleChoice{
				CategoryID:   id,
				CategoryName: CategoryName(id),
				Score:        best,
				Evidence:     Evidence{Source: SourceKeywords, Scores: scores, Text: combined, SizeBucket: sizeBucket},
			}
		}
	}
	// Unreachable: preferenceOrder covers every category id.
	return RuleChoice{}
}
