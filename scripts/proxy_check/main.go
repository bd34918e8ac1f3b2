package main

import (
	"bytes"
	"encoding/json"
	"errors"
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

// proxy_check verifies the pass-through contract: every target is requested
// once through the gateway and once straight against the archive backend,
// and the two responses must agree.

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target          target
	BackendStatus   int
	GatewayStatus   int
	StatusMatch     bool
	BodyMatch       bool
	Error           error
	DurationGateway time.Duration
	DurationBackend time.Duration
}

func main() {
	var (
		gatewayBase string
		backendBase string
		targetsPath string
		token       string
		timeout     time.Duration
	)

	flag.StringVar(&gatewayBase, "gateway-base", "http://localhost:8080", "Gateway base URL")
	flag.StringVar(&backendBase, "backend-base", "http://localhost:3000", "Archive backend base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "proxy_check", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&token, "token", os.Getenv("PROXY_CHECK_TOKEN"), "Session token forwarded on both requests")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)

	for _, t := range targets {
		comp := compareTarget(client, gatewayBase, backendBase, token, t)
		if comp.Error != nil {
			if t.Critical {
				breaking++
			}
		} else {
			if !comp.StatusMatch || !comp.BodyMatch {
				if t.Critical {
					breaking++
				} else {
					optionalDiff++
				}
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func compareTarget(client *http.Client, gatewayBase, backendBase, token string, tgt target) comparison {
	comp := comparison{Target: tgt}
	gwResp, gwDur, gwErr := performRequest(client, gatewayBase, token, tgt)
	beResp, beDur, beErr := performRequest(client, backendBase, token, tgt)
	comp.DurationGateway = gwDur
	comp.DurationBackend = beDur

	if gwErr != nil {
		comp.Error = fmt.Errorf("gateway request failed: %w", gwErr)
		return comp
	}
	if beErr != nil {
		comp.Error = fmt.Errorf("backend request failed: %w", beErr)
		return comp
	}

	comp.GatewayStatus = gwResp.StatusCode
	comp.BackendStatus = beResp.StatusCode
	comp.StatusMatch = comp.GatewayStatus == comp.BackendStatus

	defer gwResp.Body.Close()
	defer beResp.Body.Close()

	gwBody, err := io.ReadAll(gwResp.Body)
	if err != nil {
		comp.Error = fmt.Errorf("read gateway body: %w", err)
		return comp
	}
	beBody, err := io.ReadAll(beResp.Body)
	if err != nil {
		comp.Error = fmt.Errorf("read backend body: %w", err)
		return comp
	}

	comp.BodyMatch = bodiesEqual(gwBody, beBody)

	return comp
}

func performRequest(client *http.Client, base, token string, tgt target) (*http.Response, time.Duration, error) {
	if client == nil {
		return nil, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
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

func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
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

func printReport(results []comparison) {
	fmt.Println("Proxy Pass-Through Report")
	fmt.Println("=========================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Printf("  Gateway Status: %d (%s)\n", res.GatewayStatus, res.DurationGateway)
		fmt.Printf("  Backend Status: %d (%s)\n", res.BackendStatus, res.DurationBackend)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		}
	}
}
