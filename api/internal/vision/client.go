package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Feature selects which visual features an Analyze call should compute.
type Feature string

const (
	FeatureCaption Feature = "caption"
	FeatureObjects Feature = "objects"
)

type Caption struct {
	Text       string
	Confidence float64
}

type Tag struct {
	Name       string
	Confidence float64
}

// RawObject is one detection as returned by the service. Name/Confidence may
// be absent; Tags carry the fallback label.
type RawObject struct {
	Box        Rect
	Name       string
	Confidence *float64
	Tags       []Tag
}

type Analysis struct {
	Caption *Caption
	Objects []RawObject
}

// Client is the vision service boundary: one call, one image, a caption
// and/or a detection list.
type Client interface {
	Analyze(ctx context.Context, image []byte, features []Feature) (*Analysis, error)
}

// AzureClient talks to the Azure Image Analysis 4.0 REST endpoint.
type AzureClient struct {
	Endpoint string
	Key      string
	httpc    *http.Client
}

func NewAzureClient(endpoint, key string) *AzureClient {
	return &AzureClient{
		Endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		Key:      strings.TrimSpace(key),
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

const azureAPIVersion = "2024-02-01"

// Wire shapes of the Image Analysis 4.0 response. Objects in some service
// versions carry a direct name/confidence; the current one only tags.
type azureResponse struct {
	CaptionResult *struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"captionResult"`
	ObjectsResult *struct {
		Values []struct {
			BoundingBox struct {
				X int `json:"x"`
				Y int `json:"y"`
				W int `json:"w"`
				H int `json:"h"`
			} `json:"boundingBox"`
			Name       string   `json:"name"`
			Confidence *float64 `json:"confidence"`
			Tags       []struct {
				Name       string  `json:"name"`
				Confidence float64 `json:"confidence"`
			} `json:"tags"`
		} `json:"values"`
	} `json:"objectsResult"`
}

func (c *AzureClient) Analyze(ctx context.Context, image []byte, features []Feature) (*Analysis, error) {
	if c.Endpoint == "" || c.Key == "" {
		return nil, fmt.Errorf("AI_SERVICE_ENDPOINT/AI_SERVICE_KEY are empty")
	}

	names := make([]string, 0, len(features))
	for _, f := range features {
		names = append(names, string(f))
	}
	q := url.Values{}
	q.Set("api-version", azureAPIVersion)
	q.Set("features", strings.Join(names, ","))
	u := c.Endpoint + "/computervision/imageanalysis:analyze?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.Key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Body: string(x)}
	}

	var out azureResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	an := &Analysis{}
	if out.CaptionResult != nil {
		an.Caption = &Caption{Text: out.CaptionResult.Text, Confidence: out.CaptionResult.Confidence}
	}
	if out.ObjectsResult != nil {
		for _, v := range out.ObjectsResult.Values {
			ro := RawObject{
				Box:        Rect{X: v.BoundingBox.X, Y: v.BoundingBox.Y, W: v.BoundingBox.W, H: v.BoundingBox.H},
				Name:       v.Name,
				Confidence: v.Confidence,
			}
			for _, t := range v.Tags {
				ro.Tags = append(ro.Tags, Tag{Name: t.Name, Confidence: t.Confidence})
			}
			an.Objects = append(an.Objects, ro)
		}
	}
	return an, nil
}
