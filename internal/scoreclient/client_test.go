package scoreclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/robalobadob/gamecentr/internal/round"
)

func TestSubmitPostsScore(t *testing.T) {
	var got round.Submission
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/game/hangman/score" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"id":"s1"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	c.SetHeader("Authorization", "Bearer tok")
	res, err := c.Submit(context.Background(), round.Submission{Value: 100, Text: "Hangman won: CAT", Owner: "u1", Game: "hangman"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Data.(map[string]any)["id"] != "s1" {
		t.Fatalf("result = %+v", res)
	}
	if got.Value != 100 || got.Owner != "u1" || got.Game != "hangman" || auth != "Bearer tok" {
		t.Fatalf("server saw %+v auth=%q", got, auth)
	}
}

func TestSubmitErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"success":false}`, http.StatusBadRequest)
		},
		"rejected": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":false,"message":"unknown game"}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := New(srv.URL).Submit(context.Background(), round.Submission{Game: "pong", Owner: "u"})
			if err == nil {
				t.Fatal("expected error")
			}
			if name == "status" && !strings.Contains(err.Error(), "400") {
				t.Fatalf("err = %v", err)
			}
		})
	}
}
