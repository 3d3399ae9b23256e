package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

const sampleCSV = `customer_id,age,visits_per_month,total_spent
1,24,1,50.50
2,45,15,850.75
3,31,3,120.00
4,65,2,75.20
5,22,12,650.00
6,50,16,950.50
7,29,2,90.80
8,38,10,550.00
9,58,4,210.00
10,21,1,45.00
11,48,14,890.25
12,33,4,150.70
13,61,3,110.00
14,25,11,720.50
15,55,18,1100.00
16,28,1,60.00
17,36,9,480.30
18,42,13,780.00
19,68,2,95.50
20,23,10,610.00`

var (
	smokeURL     string
	smokeTest    string
	smokeFile    string
	smokeTimeout time.Duration
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run HTTP smoke checks against a running persona server",
	Example: `  personactl smoke --url http://localhost:8080
  personactl smoke --test analyze --file customers.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		csvText := sampleCSV
		if smokeFile != "" {
			text, err := readInput(cmd.InOrStdin(), smokeFile)
			if err != nil {
				return err
			}
			csvText = text
		}
		sc := &smokeClient{
			baseURL: strings.TrimRight(smokeURL, "/"),
			client:  &http.Client{Timeout: smokeTimeout},
			out:     cmd.OutOrStdout(),
			csv:     csvText,
		}

		return sc.run(smokeTest)
	},
}

// run executes the named check, or every check for "all".
func (sc *smokeClient) run(test string) error {
	checks := map[string]func() bool{
		"health":     sc.testHealthCheck,
		"agent-card": sc.testAgentCard,
		"analyze":    sc.testAnalyze,
		"a2a":        sc.testA2A,
	}
	order := []string{"health", "agent-card", "analyze", "a2a"}

	sc.printHeader("Customer Persona Agent - Smoke Tests")
	fmt.Fprintf(sc.out, "%sBase URL: %s%s\n\n", colorCyan, sc.baseURL, colorReset)

	if test != "all" {
		fn, ok := checks[test]
		if !ok {
			return fmt.Errorf("unknown test %q (available: all, %s)", test, strings.Join(order, ", "))
		}
		if !fn() {
			return fmt.Errorf("smoke test %s failed", test)
		}
		return nil
	}

	passed, failed := 0, 0
	for _, name := range order {
		if checks[name]() {
			passed++
		} else {
			failed++
		}
		fmt.Fprintln(sc.out)
	}
	sc.printHeader("Test Summary")
	fmt.Fprintf(sc.out, "%sPassed: %d%s\n", colorGreen, passed, colorReset)
	fmt.Fprintf(sc.out, "%sFailed: %d%s\n", colorRed, failed, colorReset)
	fmt.Fprintf(sc.out, "Total: %d\n", passed+failed)
	if failed > 0 {
		return fmt.Errorf("%d smoke test(s) failed", failed)
	}
	return nil
}

func init() {
	smokeCmd.Flags().StringVar(&smokeURL, "url", "http://localhost:8080", "base URL of the server")
	smokeCmd.Flags().StringVar(&smokeTest, "test", "all", "test to run: all, health, agent-card, analyze, a2a")
	smokeCmd.Flags().StringVarP(&smokeFile, "file", "f", "", "CSV file to send instead of the built-in sample")
	smokeCmd.Flags().DurationVar(&smokeTimeout, "timeout", 2*time.Minute, "per-request timeout")
}

type smokeClient struct {
	baseURL string
	client  *http.Client
	out     io.Writer
	csv     string
}

func (sc *smokeClient) testHealthCheck() bool {
	sc.printTestHeader("Testing Health Check Endpoint")

	status, body, err := sc.do(http.MethodGet, "/health", nil)
	if err != nil {
		sc.printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK || string(body) != "OK" {
		sc.printError(fmt.Sprintf("Expected 200 OK, got %d %q", status, string(body)))
		return false
	}
	sc.printSuccess("Health check passed")
	return true
}

func (sc *smokeClient) testAgentCard() bool {
	sc.printTestHeader("Testing Agent Card Endpoint")

	status, body, err := sc.do(http.MethodGet, "/.well-known/agent.json", nil)
	if err != nil {
		sc.printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK {
		sc.printError(fmt.Sprintf("Expected status 200, got %d", status))
		return false
	}

	var card map[string]any
	if err := json.Unmarshal(body, &card); err != nil {
		sc.printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	for _, field := range []string{"name", "description", "version", "capabilities", "endpoints"} {
		if _, ok := card[field]; !ok {
			sc.printError(fmt.Sprintf("Missing required field: %s", field))
			return false
		}
	}
	sc.printSuccess("Agent card is valid")
	return true
}

func (sc *smokeClient) testAnalyze() bool {
	sc.printTestHeader("Testing Persona Analysis")

	payload, _ := json.Marshal(map[string]string{"csv_data": sc.csv})
	status, body, err := sc.do(http.MethodPost, "/api/analyze", payload)
	if err != nil {
		sc.printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK {
		sc.printError(fmt.Sprintf("Expected status 200, got %d", status))
		fmt.Fprintf(sc.out, "Response: %s\n", string(body))
		return false
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		sc.printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	if result.KEstimation.K < 1 {
		sc.printError(fmt.Sprintf("Invalid k: %d", result.KEstimation.K))
		return false
	}
	if len(result.Personas) == 0 || len(result.Personas) > result.KEstimation.K {
		sc.printError(fmt.Sprintf("Expected 1..%d personas, got %d", result.KEstimation.K, len(result.Personas)))
		return false
	}
	for i := 1; i < len(result.Personas); i++ {
		if result.Personas[i].ClusterID <= result.Personas[i-1].ClusterID {
			sc.printError("Personas are not ordered by cluster_id")
			return false
		}
	}

	sc.printSuccess(fmt.Sprintf("k=%d, %d persona(s)", result.KEstimation.K, len(result.Personas)))
	fmt.Fprintf(sc.out, "%sReasoning:%s %s\n", colorYellow, colorReset, result.KEstimation.Reasoning)
	for _, p := range result.Personas {
		fmt.Fprintf(sc.out, "  [%d] %s\n", p.ClusterID, p.PersonaName)
	}
	return true
}

func (sc *smokeClient) testA2A() bool {
	sc.printTestHeader("Testing A2A Endpoint")

	request := map[string]any{
		"jsonrpc": "2.0",
		"id":      fmt.Sprintf("smoke-%d", time.Now().Unix()),
		"method":  "message/send",
		"params": map[string]any{
			"message": map[string]any{
				"kind":  "message",
				"role":  "user",
				"parts": []map[string]any{{"kind": "text", "text": sc.csv}},
			},
			"configuration": map[string]any{"blocking": true},
		},
	}
	payload, _ := json.Marshal(request)
	status, body, err := sc.do(http.MethodPost, "/a2a/personas", payload)
	if err != nil {
		sc.printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK {
		sc.printError(fmt.Sprintf("Expected status 200, got %d", status))
		return false
	}

	var resp struct {
		Error  any `json:"error"`
		Result struct {
			Status struct {
				State string `json:"state"`
			} `json:"status"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		sc.printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	if resp.Error != nil {
		sc.printError(fmt.Sprintf("Request returned an error: %v", resp.Error))
		return false
	}
	if resp.Result.Status.State != "completed" {
		sc.printError(fmt.Sprintf("Expected state 'completed', got '%s'", resp.Result.Status.State))
		return false
	}
	sc.printSuccess("A2A task completed")
	return true
}

func (sc *smokeClient) do(method, path string, payload []byte) (int, []byte, error) {
	url := sc.baseURL + path
	fmt.Fprintf(sc.out, "%s %s\n", method, url)

	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := sc.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func (sc *smokeClient) printHeader(text string) {
	fmt.Fprintf(sc.out, "\n%s%s%s\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
	fmt.Fprintf(sc.out, "%s= %s =%s\n", colorBlue, text, colorReset)
	fmt.Fprintf(sc.out, "%s%s%s\n\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
}

func (sc *smokeClient) printTestHeader(text string) {
	fmt.Fprintf(sc.out, "%s[TEST] %s%s\n", colorCyan, text, colorReset)
	fmt.Fprintln(sc.out, strings.Repeat("-", 80))
}

func (sc *smokeClient) printSuccess(text string) {
	fmt.Fprintf(sc.out, "%s✓ %s%s\n", colorGreen, text, colorReset)
}

func (sc *smokeClient) printError(text string) {
	fmt.Fprintf(sc.out, "%s✗ %s%s\n", colorRed, text, colorReset)
}
