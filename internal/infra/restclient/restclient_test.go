package restclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetParsesJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	resp, err := c.Get("/status")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("Status = %d", resp.Status)
	}
	if resp.ParsedJSON["ok"] != true {
		t.Fatalf("ParsedJSON = %v", resp.ParsedJSON)
	}
}

func TestBasicAuthHeaderSent(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		w.WriteHeader(204)
	}))
	defer srv.Close()

	c := New(srv.URL, "admin", "hunter2")
	if _, err := c.Post("/cmd", []byte(`{}`)); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !gotOK || gotUser != "admin" || gotPass != "hunter2" {
		t.Fatalf("basic auth not sent correctly: user=%q pass=%q ok=%v", gotUser, gotPass, gotOK)
	}
}

func TestNonJSONBodyLeavesParsedJSONNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	resp, err := c.Get("/raw")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.ParsedJSON != nil {
		t.Fatalf("expected nil ParsedJSON for non-JSON body, got %v", resp.ParsedJSON)
	}
}
