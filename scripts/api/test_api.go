// Minimal end-to-end smoke test for the bounty board API.
//
// SMOKE_VERIFIER_ID must be listed in BOOTSTRAP_VERIFIERS of the running
// server, and JWT_SECRET must match its secret.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	baseURL    = getenv("API_URL", "http://localhost:8080/v1")
	redisURL   = getenv("REDIS_URL", "")
	stream     = getenv("EVENTS_STREAM", "bountyboard.events")
	secret     = getenv("JWT_SECRET", "")
	verifierID = getenv("SMOKE_VERIFIER_ID", "")
	memberID   = "smoke-" + uuid.NewString()[:8]
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

type bountyResp struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	AssignedTo string `json:"assignedTo"`
}

func main() {
	if secret == "" || verifierID == "" {
		log.Fatal("JWT_SECRET and SMOKE_VERIFIER_ID are required")
	}
	verifierTok := mint(verifierID)
	memberTok := mint(memberID)

	var created bountyResp
	doAuth(memberTok, "POST", "/bounties", map[string]any{
		"title":       "smoke test " + memberID,
		"description": "created by the API smoke test",
		"type":        "community",
	}, &created, http.StatusCreated)
	expect("post", created.Status, "awaiting_verification")

	id := created.ID
	var b bountyResp
	doAuth(verifierTok, "POST", "/bounties/"+id+"/preverification", map[string]any{"approve": true}, &b, http.StatusOK)
	expect("preverification", b.Status, "posted")

	doAuth(memberTok, "POST", "/bounties/"+id+"/claim", nil, &b, http.StatusOK)
	expect("claim", b.AssignedTo, memberID)

	doAuth(memberTok, "POST", "/bounties/"+id+"/complete", nil, &b, http.StatusOK)
	expect("complete", b.Status, "awaiting_post_verification")

	doAuth(verifierTok, "POST", "/bounties/"+id+"/verification", map[string]any{"approve": true}, &b, http.StatusOK)
	expect("verification", b.Status, "verified")

	var assigned []bountyResp
	doAuth(memberTok, "GET", "/members/me/bounties", nil, &assigned, http.StatusOK)
	if len(assigned) != 0 {
		log.Fatalf("member still holds %d bounties", len(assigned))
	}

	if redisURL != "" {
		checkStream(id)
	}

	fmt.Println("✓ bounty lifecycle passed")
}

func mint(sub string) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(10 * time.Minute).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	return tok
}

func expect(step, got, want string) {
	if got != want {
		log.Fatalf("%s: want %q got %q", step, want, got)
	}
}

// checkStream waits for the dispatcher to publish the final approval.
func checkStream(id string) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("redis url: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	num := strings.TrimPrefix(id, "bounty_")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for ctx.Err() == nil {
		msgs, err := rdb.XRevRangeN(ctx, stream, "+", "-", 50).Result()
		if err != nil {
			log.Fatalf("redis xrevrange: %v", err)
		}
		for _, m := range msgs {
			if m.Values["bounty_id"] == num && m.Values["kind"] == "render_approval" && m.Values["bounty_status"] == "verified" {
				return
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	log.Fatalf("events: no approval for %s on %s", id, stream)
}

func doAuth(token, method, path string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s encode: %v", method, path, err)
		}
	}
	req, _ := http.NewRequest(method, baseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("%s %s: want %d got %d", method, path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}
