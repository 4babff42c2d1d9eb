package collab

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestValidateCode(t *testing.T) {
	tests := []struct {
		code string
		ok   bool
	}{
		{"AB12", true},
		{"x7Kq9ZpL", true},
		{"abc", false},
		{"AB-12", false},
		{"../etc", false},
		{"", false},
		{"0123456789012345678901234567890123", false},
	}
	for _, tc := range tests {
		err := ValidateCode(tc.code)
		if (err == nil) != tc.ok {
			t.Errorf("ValidateCode(%q) = %v, want ok=%v", tc.code, err, tc.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidCode) {
			t.Errorf("ValidateCode(%q) = %v, want ErrInvalidCode", tc.code, err)
		}
	}
}

func newServer(t *testing.T) (*Client, *[]string) {
	t.Helper()
	var seen []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = append(seen, r.Header.Get("Content-Type")+" "+r.Header.Get("Content-Disposition")+" "+string(body))
		if string(body) == "fail" {
			http.Error(w, "storage offline", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /api/claims/{code}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("code") != "AB12CD" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="contract.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.7"))
	})
	mux.HandleFunc("GET /api/quota", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"remaining": 2}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/api/", WithAPIKey("secret"), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c, &seen
}

func TestClientPersist(t *testing.T) {
	c, seen := newServer(t)
	ctx := context.Background()

	if err := c.Persist(ctx, Artifact{Name: "signed.pdf", MIME: "application/pdf", Data: []byte("data")}); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	want := `application/pdf attachment; filename=signed.pdf data`
	if len(*seen) != 1 || (*seen)[0] != want {
		t.Errorf("server saw %q, want %q", *seen, want)
	}

	err := c.Persist(ctx, Artifact{Name: "x.pdf", MIME: "application/pdf", Data: []byte("fail")})
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusServiceUnavailable || se.Body != "storage offline" {
		t.Errorf("Persist() error = %v, want StatusError 503", err)
	}
}

func TestClientClaim(t *testing.T) {
	c, _ := newServer(t)
	ctx := context.Background()

	a, err := c.Claim(ctx, "AB12CD")
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if a.Name != "contract.pdf" || a.MIME != "application/pdf" || string(a.Data) != "%PDF-1.7" {
		t.Errorf("Claim() = %+v", a)
	}

	if _, err := c.Claim(ctx, "ZZ99"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Claim(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := c.Claim(ctx, "a/b"); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("Claim(a/b) error = %v, want ErrInvalidCode", err)
	}
}

func TestClientRemaining(t *testing.T) {
	c, _ := newServer(t)
	n, err := c.Remaining(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("Remaining() = %d, %v, want 2", n, err)
	}

	noKey, err := NewClient(c.base.String(), WithHTTPClient(c.http))
	if err != nil {
		t.Fatal(err)
	}
	var se *StatusError
	if _, err := noKey.Remaining(context.Background()); !errors.As(err, &se) || se.Status != http.StatusUnauthorized {
		t.Errorf("Remaining() without key error = %v, want 401", err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("not a url"); err == nil {
		t.Error("NewClient accepted an invalid URL")
	}
}

func TestUnlimited(t *testing.T) {
	n, err := Unlimited{}.Remaining(context.Background())
	if err != nil || n <= 0 {
		t.Errorf("Unlimited.Remaining() = %d, %v", n, err)
	}
}

func TestDirSaver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := DirSaver{Dir: dir}
	ctx := context.Background()

	first, err := s.Save(ctx, Artifact{Name: "signed.pdf", Data: []byte("one")})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Save(ctx, Artifact{Name: "../../signed.pdf", Data: []byte("two")})
	if err != nil {
		t.Fatal(err)
	}
	if first != filepath.Join(dir, "signed.pdf") || second != filepath.Join(dir, "signed-1.pdf") {
		t.Errorf("saved to %s and %s", first, second)
	}
	for path, want := range map[string]string{first: "one", second: "two"} {
		got, err := os.ReadFile(path)
		if err != nil || string(got) != want {
			t.Errorf("%s = %q, %v, want %q", path, got, err, want)
		}
	}

	if _, err := s.Save(ctx, Artifact{Name: ""}); err == nil {
		t.Error("Save accepted an empty name")
	}
}
