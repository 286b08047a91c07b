package passcode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRandomOrgSource(t *testing.T) {
	var got rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"random":{"data":["qwerty"]}},"id":"x"}`))
	}))
	defer srv.Close()

	code, err := NewRandomOrgSource(srv.URL, "key-1").Passcode(context.Background())
	if err != nil {
		t.Fatalf("passcode: %v", err)
	}
	if code != "qwerty" {
		t.Fatalf("expected qwerty, got %q", code)
	}
	if got.Method != "generateStrings" || got.JSONRPC != "2.0" || got.ID == "" {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Params["apiKey"] != "key-1" || got.Params["characters"] != alphabet {
		t.Fatalf("unexpected params %+v", got.Params)
	}
	if n, _ := got.Params["length"].(float64); int(n) != Length {
		t.Fatalf("expected length %d, got %v", Length, got.Params["length"])
	}
}

func TestRandomOrgSourceErrors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"rpc error":   {http.StatusOK, `{"error":{"code":401,"message":"bad key"}}`},
		"http status": {http.StatusBadGateway, `upstream down`},
		"no data":     {http.StatusOK, `{"result":{"random":{"data":[]}}}`},
		"malformed":   {http.StatusOK, `{"result":{"random":{"data":["AB12"]}}}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			if _, err := NewRandomOrgSource(srv.URL, "k").Passcode(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLocalSource(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := LocalSource{}.Passcode(context.Background())
		if err != nil {
			t.Fatalf("passcode: %v", err)
		}
		if !Valid(code) {
			t.Fatalf("invalid passcode %q", code)
		}
	}
}

func TestLocalSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (LocalSource{}).Passcode(ctx); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
