package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vijay-svsk/call-summarizer/audio"
)

func newService(t *testing.T, path string, handler http.HandlerFunc) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

// expectUpload checks the request carries the asset as multipart "file".
func expectUpload(t *testing.T, r *http.Request, want string) {
	t.Helper()
	f, hdr, err := r.FormFile("file")
	if err != nil {
		t.Errorf("missing file field: %v", err)
		return
	}
	defer f.Close()
	b, _ := io.ReadAll(f)
	if string(b) != want || hdr.Filename != "call.wav" {
		t.Errorf("unexpected upload %q (%s)", b, hdr.Filename)
	}
}

func testAsset() *audio.Asset {
	a := audio.NewAsset("call.wav", []byte("RIFF-payload"))
	a.Format = audio.FormatWAV
	return a
}

func TestASR_Transcribe(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantText string
		wantSegs int
	}{
		{"text field", `{"text":" hello there ","language":"en","segments":[{"start":0,"end":1.5,"text":"hello there"}]}`, "hello there", 1},
		{"segments only", `{"segments":[{"start":0,"end":1,"text":"hello"},{"start":1,"end":2,"text":" there"}]}`, "hello there", 2},
		{"silence", `{"text":"","segments":[]}`, "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			url := newService(t, "/transcribe", func(w http.ResponseWriter, r *http.Request) {
				expectUpload(t, r, "RIFF-payload")
				io.WriteString(w, tc.reply)
			})
			tr, err := NewASR(NewHTTP(time.Second), url).Transcribe(context.Background(), testAsset())
			if err != nil {
				t.Fatalf("Transcribe failed: %v", err)
			}
			if tr.Text != tc.wantText || len(tr.Segments) != tc.wantSegs {
				t.Errorf("unexpected transcript %+v", tr)
			}
		})
	}
}

func TestHTTP_StatusError(t *testing.T) {
	url := newService(t, "/transcribe", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})
	_, err := NewASR(NewHTTP(time.Second), url).Transcribe(context.Background(), testAsset())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusServiceUnavailable || se.Body != "model not loaded" || se.Service != "asr" {
		t.Errorf("unexpected %+v", se)
	}
}

func TestHTTP_Timeout(t *testing.T) {
	url := newService(t, "/diarize", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := NewDiarization(NewHTTP(time.Minute), url).Diarize(ctx, testAsset()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDiarization_SortsTurns(t *testing.T) {
	url := newService(t, "/diarize", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"segments":[{"speaker":"B","start":3,"end":5},{"speaker":"A","start":0,"end":3.5}]}`)
	})
	turns, err := NewDiarization(NewHTTP(time.Second), url).Diarize(context.Background(), testAsset())
	if err != nil {
		t.Fatalf("Diarize failed: %v", err)
	}
	if len(turns) != 2 || turns[0].Speaker != "A" {
		t.Errorf("unexpected turns %+v", turns)
	}
}

func TestDenoise(t *testing.T) {
	url := newService(t, "/denoise", func(w http.ResponseWriter, r *http.Request) {
		expectUpload(t, r, "RIFF-payload")
		io.WriteString(w, "RIFF-clean")
	})
	got, err := NewDenoise(NewHTTP(time.Second), url, 0).Denoise(context.Background(), testAsset())
	if err != nil || string(got) != "RIFF-clean" {
		t.Fatalf("unexpected %q %v", got, err)
	}

	if _, err := NewDenoise(NewHTTP(time.Second), url, 4).Denoise(context.Background(), testAsset()); err == nil {
		t.Error("expected oversized reply to fail")
	}
}

func TestSentiment_Classify(t *testing.T) {
	url := newService(t, "/sentiment", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["text"] != "thanks, that fixed it" {
			t.Errorf("unexpected text %q", req["text"])
		}
		io.WriteString(w, `{"label":"POSITIVE","score":0.93,"scores":[{"label":"POSITIVE","score":0.93},{"label":"NEGATIVE","score":0.07}]}`)
	})
	s, err := NewSentiment(NewHTTP(time.Second), url).ClassifySentiment(context.Background(), "thanks, that fixed it")
	if err != nil {
		t.Fatalf("ClassifySentiment failed: %v", err)
	}
	if s.Label != "positive" || s.Confidence != 0.93 || s.Scores["negative"] != 0.07 {
		t.Errorf("unexpected %+v", s)
	}
}

func TestFeatureServices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/features", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"pitch_median_hz":132.5,"rms":0.04}`)
	})
	mux.HandleFunc("/noise", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"zcr":0.1,"spectral_centroid":1800,"rms":0.02,"background_noise":35}`)
	})
	mux.HandleFunc("/topics", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"keywords":["refund"]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	h := NewHTTP(time.Second)
	ctx := context.Background()

	af, err := NewAudioSentiment(h, srv.URL).AnalyzeAudio(ctx, testAsset())
	if err != nil || af.PitchMedianHz != 132.5 {
		t.Errorf("AnalyzeAudio: %+v %v", af, err)
	}
	nf, err := NewNoise(h, srv.URL+"/").EstimateNoise(ctx, testAsset())
	if err != nil || nf.BackgroundNoise != 35 || nf.SpectralCentroid != 1800 {
		t.Errorf("EstimateNoise: %+v %v", nf, err)
	}
	tp, err := NewTopics(h, srv.URL).ExtractTopics(ctx, "refund please")
	if err != nil || len(tp.Keywords) != 1 || tp.Entities == nil {
		t.Errorf("ExtractTopics: %+v %v", tp, err)
	}
}

func TestSDKClients_RequireKeys(t *testing.T) {
	if _, err := NewWhisper("", "", ""); err == nil {
		t.Error("expected whisper to require an api key")
	}
	if _, err := NewGemini(context.Background(), "", "", "[TEXT ANALYSIS]", "[JSON]"); err == nil {
		t.Error("expected gemini to require an api key")
	}
}
