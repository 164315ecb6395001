package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/freqaug/internal/server"
)

// RegisterServerSteps registers steps against an in-process test server.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the augmentation server is running$`, func() error {
		return testCtx.startTestHTTPServer(ServerOptions{})
	})
	sc.Step(`^the augmentation server is running with an overlay source$`, func() error {
		return testCtx.startTestHTTPServer(ServerOptions{Overlay: true})
	})
	sc.Step(`^the augmentation server is running with a limit of (\d+) requests per minute$`, func(n int) error {
		return testCtx.startTestHTTPServer(ServerOptions{RequestsPerMinute: n})
	})

	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I augment a (\d+)x(\d+)x(\d+)x(\d+) batch with variant "([^"]*)"$`, testCtx.iAugmentABatch)
	sc.Step(`^I augment a (\d+)x(\d+)x(\d+)x(\d+) batch with variant "([^"]*)" and seed (\d+)$`, testCtx.iAugmentABatchWithSeed)
	sc.Step(`^I augment a (\d+)x(\d+)x(\d+)x(\d+) batch and reference with variant "([^"]*)"$`, testCtx.iAugmentWithReference)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the augmented batch should have shape (\d+)x(\d+)x(\d+)x(\d+)$`, testCtx.theAugmentedBatchShouldHaveShape)
	sc.Step(`^the augmented batch values should lie in \[(\d+), (\d+)\]$`, testCtx.theAugmentedValuesShouldLieIn)
}

func (testCtx *TestContext) do(req *http.Request) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("no server is running")
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = body
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iGET(path string) error {
	req, err := http.NewRequest(http.MethodGet, testCtx.GetServerURL()+path, nil) //nolint:noctx // test
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

// rampBatch returns an n×c×h×w payload with values cycling through 0..255.
func rampBatch(n, c, h, w, offset int) *server.BatchPayload {
	data := make([]float32, n*c*h*w)
	for i := range data {
		data[i] = float32((i*37 + offset) % 256)
	}
	return &server.BatchPayload{Shape: []int{n, c, h, w}, Data: data}
}

func (testCtx *TestContext) postAugment(body server.AugmentRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, testCtx.GetServerURL()+"/augment", bytes.NewReader(data)) //nolint:noctx // test
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return testCtx.do(req)
}

func (testCtx *TestContext) iAugmentABatch(n, c, h, w int, variant string) error {
	return testCtx.postAugment(server.AugmentRequest{Variant: variant, Batch: rampBatch(n, c, h, w, 0)})
}

func (testCtx *TestContext) iAugmentABatchWithSeed(n, c, h, w int, variant string, seed int) error {
	s := uint64(seed) //nolint:gosec // non-negative by the step pattern
	return testCtx.postAugment(server.AugmentRequest{Variant: variant, Batch: rampBatch(n, c, h, w, 0), Seed: &s})
}

func (testCtx *TestContext) iAugmentWithReference(n, c, h, w int, variant string) error {
	return testCtx.postAugment(server.AugmentRequest{
		Variant:   variant,
		Batch:     rampBatch(n, c, h, w, 0),
		Reference: rampBatch(n, c, h, w, 101),
	})
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(string(testCtx.LastHTTPResponse), text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseJSONFieldShouldBe compares a top-level field by its JSON text
// form, so "true", "400" and "mask-ring" all work.
func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, want string) error {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(testCtx.LastHTTPResponse, &body); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}
	raw, ok := body[field]
	if !ok {
		return fmt.Errorf("field %q not found in %s", field, testCtx.LastHTTPResponse)
	}
	got := string(raw)
	if unquoted, err := strconv.Unquote(got); err == nil {
		got = unquoted
	}
	if got != want {
		return fmt.Errorf("field %q: expected %q, got %q", field, want, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, want string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != want {
		return fmt.Errorf("header %s: expected %q, got %q", name, want, got)
	}
	return nil
}

func (testCtx *TestContext) augmentResponse() (*server.AugmentResponse, error) {
	var resp server.AugmentResponse
	if err := json.Unmarshal(testCtx.LastHTTPResponse, &resp); err != nil {
		return nil, fmt.Errorf("response is not an augment response: %w", err)
	}
	if resp.Batch == nil {
		return nil, fmt.Errorf("response has no batch: %s", testCtx.LastHTTPResponse)
	}
	return &resp, nil
}

func (testCtx *TestContext) theAugmentedBatchShouldHaveShape(n, c, h, w int) error {
	resp, err := testCtx.augmentResponse()
	if err != nil {
		return err
	}
	want := []int{n, c, h, w}
	if fmt.Sprint(resp.Batch.Shape) != fmt.Sprint(want) {
		return fmt.Errorf("expected shape %v, got %v", want, resp.Batch.Shape)
	}
	if len(resp.Batch.Data) != n*c*h*w {
		return fmt.Errorf("expected %d values, got %d", n*c*h*w, len(resp.Batch.Data))
	}
	return nil
}

func (testCtx *TestContext) theAugmentedValuesShouldLieIn(lo, hi int) error {
	resp, err := testCtx.augmentResponse()
	if err != nil {
		return err
	}
	const slack = 1e-3
	for i, v := range resp.Batch.Data {
		if math.IsNaN(float64(v)) || float64(v) < float64(lo)-slack || float64(v) > float64(hi)+slack {
			return fmt.Errorf("value %d = %v outside [%d, %d]", i, v, lo, hi)
		}
	}
	return nil
}
