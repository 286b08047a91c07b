// Package passcode issues six-letter room passcodes.
package passcode

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// Length of every passcode.
	Length   = 6
	alphabet = "abcdefghijklmnopqrstuvwxyz"
)

// RandomOrgSource asks the random.org JSON-RPC API for one lowercase string.
type RandomOrgSource struct {
	url     string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewRandomOrgSource(url, apiKey string) *RandomOrgSource {
	return &RandomOrgSource{
		url:     url,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      string         `json:"id"`
}

type rpcResponse struct {
	Result *struct {
		Random struct {
			Data []string `json:"data"`
		} `json:"random"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Passcode returns a fresh passcode. Uniqueness is left to the generator.
func (s *RandomOrgSource) Passcode(ctx context.Context) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for token source: %w", err)
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "generateStrings",
		Params: map[string]any{
			"apiKey":     s.apiKey,
			"n":          1,
			"length":     Length,
			"characters": alphabet,
		},
		ID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call token source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("token source status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("token source error %d: %s", out.Error.Code, out.Error.Message)
	}
	if out.Result == nil || len(out.Result.Random.Data) == 0 {
		return "", fmt.Errorf("token source returned no data")
	}

	code := out.Result.Random.Data[0]
	if !Valid(code) {
		return "", fmt.Errorf("token source returned malformed passcode %q", code)
	}
	return code, nil
}

// LocalSource draws passcodes from crypto/rand.
type LocalSource struct{}

func (LocalSource) Passcode(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	buf := make([]byte, Length)
	limit := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Valid reports whether code looks like a passcode.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
