// Command shadow_compare replays read-only requests against the legacy
// Express backend and this Go service and reports response differences.
// Used during cutover to verify endpoint parity before switching traffic.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

// Fields whose values legitimately differ between backends.
var volatileFields = map[string]bool{
	"request_id": true,
	"created_at": true,
	"updated_at": true,
	"expires_in": true,
}

type endpoint struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type manifest struct {
	Endpoints []endpoint `json:"endpoints"`
}

type result struct {
	Endpoint     endpoint
	LegacyStatus int
	GoStatus     int
	StatusMatch  bool
	BodyMatch    bool
	Err          error
	GoDuration   time.Duration
	LegDuration  time.Duration
}

func main() {
	var (
		goBase     string
		legacyBase string
		manifestP  string
		token      string
		timeout    time.Duration
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:5000", "Legacy Express API base URL")
	flag.StringVar(&manifestP, "endpoints", filepath.Join("scripts", "shadow_compare", "endpoints.json"), "Path to endpoint manifest")
	flag.StringVar(&token, "token", os.Getenv("SHADOW_COMPARE_TOKEN"), "Bearer token sent to both backends")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	endpoints, err := loadManifest(manifestP)
	if err != nil {
		log.Fatalf("failed to load endpoint manifest: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results      []result
		breaking     int
		optionalDiff int
	)

	for _, ep := range endpoints {
		res := compare(client, goBase, legacyBase, token, ep)
		if res.Err != nil || !res.StatusMatch || !res.BodyMatch {
			if ep.Critical {
				breaking++
			} else if res.Err == nil {
				optionalDiff++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadManifest(path string) ([]endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints defined in %s", path)
	}
	return m.Endpoints, nil
}

func compare(client *http.Client, goBase, legacyBase, token string, ep endpoint) result {
	res := result{Endpoint: ep}

	goResp, goDur, goErr := perform(client, goBase, token, ep)
	legResp, legDur, legErr := perform(client, legacyBase, token, ep)
	res.GoDuration = goDur
	res.LegDuration = legDur

	if goErr != nil {
		res.Err = fmt.Errorf("go request failed: %w", goErr)
		return res
	}
	if legErr != nil {
		res.Err = fmt.Errorf("legacy request failed: %w", legErr)
		return res
	}
	defer goResp.Body.Close()  //nolint:errcheck
	defer legResp.Body.Close() //nolint:errcheck

	res.GoStatus = goResp.StatusCode
	res.LegacyStatus = legResp.StatusCode
	res.StatusMatch = res.GoStatus == res.LegacyStatus

	goBody, err := io.ReadAll(goResp.Body)
	if err != nil {
		res.Err = fmt.Errorf("read go body: %w", err)
		return res
	}
	legBody, err := io.ReadAll(legResp.Body)
	if err != nil {
		res.Err = fmt.Errorf("read legacy body: %w", err)
		return res
	}

	res.BodyMatch = bodiesEqual(goBody, legBody)
	return res
}

func perform(client *http.Client, base, token string, ep endpoint) (*http.Response, time.Duration, error) {
	method := strings.ToUpper(strings.TrimSpace(ep.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := ep.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return resp, time.Since(start), nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

// normalize strips volatile fields and collapses whole floats so that
// 2 and 2.0 compare equal across JSON encoders.
func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if volatileFields[k] {
				delete(val, k)
				continue
			}
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(results []result) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Endpoint.Method, res.Endpoint.Path)
		fmt.Printf("  Go Status: %d (%s)\n", res.GoStatus, res.GoDuration)
		fmt.Printf("  Legacy Status: %d (%s)\n", res.LegacyStatus, res.LegDuration)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
		} else {
			fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Endpoint.Critical)
		}
	}
}
