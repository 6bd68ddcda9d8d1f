package challenge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"multiauth/internal/domain"
	"multiauth/internal/handshake"
)

type stubVerifier struct {
	ok     bool
	err    error
	tokens []string
}

func (s *stubVerifier) Verify(_ context.Context, token string, _ int64) (bool, error) {
	s.tokens = append(s.tokens, token)
	return s.ok, s.err
}

// reportingPresenter responde cada desafio con reply desde el hook de lanzamiento.
func reportingPresenter(reply func(p *BrokerPresenter, id string)) *BrokerPresenter {
	var p *BrokerPresenter
	p = NewBrokerPresenter(func(id, _ string) {
		go reply(p, id)
	})
	return p
}

func newGate(p Presenter, v TokenVerifier, timeoutMs int64) *Gate {
	return NewGate(nil, p, v, GateConfig{
		AuthDomain:     "demo.firebaseapp.com",
		CallbackScheme: "recaptcha://",
		TimeoutMs:      timeoutMs,
	})
}

func TestGate_Obtain(t *testing.T) {
	tests := []struct {
		name      string
		reply     func(p *BrokerPresenter, id string)
		verifier  *stubVerifier
		want      State
		wantToken string
		wantOK    bool
	}{
		{
			name:      "verified",
			reply:     func(p *BrokerPresenter, id string) { _ = p.Report(id, "recaptcha://token?token=abc") },
			verifier:  &stubVerifier{ok: true},
			want:      Verified,
			wantToken: "abc",
			wantOK:    true,
		},
		{
			name:     "empty token",
			reply:    func(p *BrokerPresenter, id string) { _ = p.Report(id, "recaptcha://token?token=") },
			verifier: &stubVerifier{ok: true},
			want:     Rejected,
		},
		{
			name:     "verification false",
			reply:    func(p *BrokerPresenter, id string) { _ = p.Report(id, "recaptcha://token?abc") },
			verifier: &stubVerifier{ok: false},
			want:     Rejected,
		},
		{
			name:     "cancelled",
			reply:    func(p *BrokerPresenter, id string) { _ = p.Cancel(id) },
			verifier: &stubVerifier{ok: true},
			want:     Cancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGate(reportingPresenter(tt.reply), tt.verifier, 5000)
			out, err := g.Obtain(context.Background(), "c1", 1000)
			if err != nil {
				t.Fatalf("obtain: %v", err)
			}
			if out.State != tt.want || out.Token != tt.wantToken || out.OK() != tt.wantOK {
				t.Fatalf("unexpected outcome: %+v (ok=%v)", out, out.OK())
			}
		})
	}
}

func TestGate_ObtainVerifiesReportedToken(t *testing.T) {
	v := &stubVerifier{ok: true}
	g := newGate(reportingPresenter(func(p *BrokerPresenter, id string) {
		_ = p.Report(id, "recaptcha://token?token=tok-1")
	}), v, 5000)

	if _, err := g.Obtain(context.Background(), "", 1000); err != nil {
		t.Fatalf("obtain: %v", err)
	}
	if len(v.tokens) != 1 || v.tokens[0] != "tok-1" {
		t.Fatalf("expected single verification of tok-1, got %v", v.tokens)
	}
}

func TestGate_ObtainTimeout(t *testing.T) {
	p := NewBrokerPresenter(nil)
	g := newGate(p, &stubVerifier{ok: true}, 20)

	out, err := g.Obtain(context.Background(), "slow", 1000)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if out.OK() {
		t.Fatalf("expected failed outcome")
	}
	if err := p.Report("slow", "recaptcha://token?token=late"); err == nil {
		t.Fatalf("expected late report to be refused")
	}
}

func TestGate_ObtainVerifierError(t *testing.T) {
	v := &stubVerifier{err: domain.Misconfigured("recaptcha secret key is required")}
	g := newGate(reportingPresenter(func(p *BrokerPresenter, id string) {
		_ = p.Report(id, "recaptcha://token?token=abc")
	}), v, 5000)

	out, err := g.Obtain(context.Background(), "c1", 1000)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if out.State != Rejected {
		t.Fatalf("expected rejected, got %s", out.State)
	}
}

func TestGate_ObtainDuplicate(t *testing.T) {
	p := NewBrokerPresenter(nil)
	if _, err := p.Present(context.Background(), "c1", "u"); err != nil {
		t.Fatalf("present: %v", err)
	}
	g := newGate(p, &stubVerifier{ok: true}, 5000)
	if _, err := g.Obtain(context.Background(), "c1", 1000); !errors.Is(err, handshake.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"recaptcha://token?token=abc", "abc"},
		{"recaptcha://token?abc", "abc"},
		{"recaptcha://token?token=a%2Bb", "a+b"},
		{"recaptcha://token", ""},
		{"recaptcha://other?token=abc", ""},
		{"other://token?token=abc", ""},
		{"recaptcha://token?foo=bar", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ParseCallback("recaptcha://", tt.uri); got != tt.want {
			t.Fatalf("ParseCallback(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestPageURL(t *testing.T) {
	if got := PageURL("demo.firebaseapp.com/"); got != "https://demo.firebaseapp.com/recaptcha.html" {
		t.Fatalf("unexpected page url %q", got)
	}
}

func TestVerifier_Verify(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		if form.Get("response") == "good" {
			_, _ = io.WriteString(w, `{"success":true}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":false,"error-codes":["invalid-input-response"]}`)
	}))
	defer srv.Close()

	v := NewVerifier(nil, "s3cret", srv.URL, nil)

	ok, err := v.Verify(context.Background(), "good", 2000)
	if err != nil || !ok {
		t.Fatalf("expected success, ok=%v err=%v", ok, err)
	}
	if form.Get("secret") != "s3cret" || form.Get("response") != "good" {
		t.Fatalf("unexpected form: %v", form)
	}

	ok, err = v.Verify(context.Background(), "bad", 2000)
	if err != nil || ok {
		t.Fatalf("expected failure without error, ok=%v err=%v", ok, err)
	}
}

func TestVerifier_MissingSecret(t *testing.T) {
	v := NewVerifier(nil, "", "http://127.0.0.1:1", nil)
	if _, err := v.Verify(context.Background(), "tok", 1000); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestVerifier_BlankToken(t *testing.T) {
	v := NewVerifier(nil, "s", "http://127.0.0.1:1", nil)
	if _, err := v.Verify(context.Background(), "  ", 1000); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVerifier_HTTPErrorIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewVerifier(nil, "s", srv.URL, nil)
	if _, err := v.Verify(context.Background(), "tok", 2000); !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
