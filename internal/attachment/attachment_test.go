package attachment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		mime string
		want Kind
	}{
		{"audio/ogg", KindAudio},
		{"image/png", KindFile},
		{"application/pdf", KindFile},
		{"text/plain", KindText},
		{"application/json", KindText},
		{"application/yaml", KindText},
		{"application/octet-stream", KindFile},
	}
	for _, tc := range cases {
		if got := Classify(tc.mime); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.mime, got, tc.want)
		}
	}
}

func TestToFilePart(t *testing.T) {
	a := Attachment{Filename: "diagram.png", MimeType: "image/png", URL: "https://cdn.example/diagram.png"}
	part := ToFilePart(a)
	if part.Type != "file" || part.URL != a.URL || part.Mime != a.MimeType || part.Filename != a.Filename {
		t.Fatalf("ToFilePart() = %+v", part)
	}
}

func TestFetchAndInline_WrapsBodyInEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("package main\n"))
	}))
	defer srv.Close()

	a := Attachment{Filename: "main.go", MimeType: "text/plain", URL: srv.URL}
	got, err := FetchAndInline(context.Background(), srv.Client(), a)
	if err != nil {
		t.Fatalf("FetchAndInline() error = %v", err)
	}
	if !strings.HasPrefix(got, `<attachment filename="main.go" mime="text/plain">`) {
		t.Fatalf("missing envelope open tag: %q", got)
	}
	if !strings.Contains(got, "package main") || !strings.HasSuffix(got, "</attachment>") {
		t.Fatalf("unexpected envelope: %q", got)
	}
}

func TestFetchAndInline_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FetchAndInline(context.Background(), srv.Client(), Attachment{URL: srv.URL, Filename: "x"})
	if err == nil {
		t.Fatalf("expected error for 404")
	}
}
