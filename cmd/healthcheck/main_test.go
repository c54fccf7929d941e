package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/readyz":
			w.WriteHeader(http.StatusOK)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	if err := probe(srv.Client(), srv.URL+"/readyz"); err != nil {
		t.Errorf("probe /readyz: %v", err)
	}
	if err := probe(srv.Client(), srv.URL+"/down"); err == nil {
		t.Error("probe should fail on 503")
	}

	client := srv.Client()
	client.Timeout = 20 * time.Millisecond
	if err := probe(client, srv.URL+"/slow"); err == nil {
		t.Error("probe should fail after the timeout")
	}
}
