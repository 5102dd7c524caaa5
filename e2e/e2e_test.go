package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/Furulango/handseg/internal/app"
	"github.com/Furulango/handseg/internal/detector"
	"github.com/Furulango/handseg/internal/fixtures"
	"github.com/Furulango/handseg/internal/server"
	"github.com/Furulango/handseg/internal/store"
)

func upload(t *testing.T, client *http.Client, url string, image []byte, landmarks []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="hands.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(image)

	if landmarks != nil {
		mw.WriteField("landmarks", string(landmarks))
	}
	mw.Close()

	resp, err := client.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return resp
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	hands, err := fixtures.Hands("two_hands")
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	mock := detector.NewMockDetector()
	mock.SetHands(hands)

	application := app.New(app.Config{Store: s, Detector: mock})
	defer application.Close()

	ts := httptest.NewServer(server.New(server.Config{App: application, Store: s}))
	defer ts.Close()
	client := ts.Client()

	image, err := fixtures.HandPNG(640, 480, hands)
	if err != nil {
		t.Fatalf("render fixture: %v", err)
	}

	var reportRun string

	t.Run("DetectedHandsReport", func(t *testing.T) {
		resp := upload(t, client, ts.URL+"/api/segment/hands", image, nil)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("status = %d, want %d: %s", resp.StatusCode, http.StatusOK, body)
		}
		pdf, _ := io.ReadAll(resp.Body)
		if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
			t.Error("expected a PDF report")
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 detector call, got %d", mock.Calls())
		}
		reportRun = resp.Header.Get("X-Run-ID")
	})

	t.Run("SuppliedLandmarks", func(t *testing.T) {
		raw, err := fixtures.Raw("open_palm")
		if err != nil {
			t.Fatalf("load fixture: %v", err)
		}

		resp := upload(t, client, ts.URL+"/api/segment/hands?format=png", image, raw)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("Content-Type = %s, want image/png", ct)
		}
		if mock.Calls() != 1 {
			t.Errorf("expected the detector to be bypassed, got %d calls", mock.Calls())
		}
	})

	t.Run("BrokenUpload", func(t *testing.T) {
		resp := upload(t, client, ts.URL+"/api/segment/hands", []byte("not a png"), nil)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
		}
	})

	t.Run("RunHistory", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/runs")
		if err != nil {
			t.Fatalf("GET /api/runs error = %v", err)
		}
		defer resp.Body.Close()

		var listed struct {
			Runs []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"runs"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(listed.Runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(listed.Runs))
		}

		failed := 0
		for _, r := range listed.Runs {
			if r.Status == string(store.RunStatusFailed) {
				failed++
			}
		}
		if failed != 1 {
			t.Errorf("expected 1 failed run, got %d", failed)
		}
	})

	t.Run("ReportRunZones", func(t *testing.T) {
		if reportRun == "" {
			t.Skip("no report run")
		}
		resp, err := client.Get(ts.URL + "/api/runs/" + reportRun)
		if err != nil {
			t.Fatalf("GET run error = %v", err)
		}
		defer resp.Body.Close()

		var run struct {
			Hands     int `json:"hands"`
			PalmSteps int `json:"palm_steps"`
			Zones     []struct {
				Name string  `json:"name"`
				Mean float64 `json:"mean"`
			} `json:"zones"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if run.Hands != 2 {
			t.Errorf("expected 2 hands, got %d", run.Hands)
		}
		if len(run.Zones) == 0 {
			t.Fatal("expected outlined zones")
		}
		if run.Zones[0].Name != "Hand zone 1" {
			t.Errorf("unexpected first zone %q", run.Zones[0].Name)
		}
	})
}
