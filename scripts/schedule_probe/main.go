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
	"strings"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

type probeCase struct {
	Name         string                      `json:"name"`
	Payload      dto.GenerateScheduleRequest `json:"payload"`
	ExpectStatus int                         `json:"expectStatus"`
	Critical     bool                        `json:"critical"`
}

type fixtures struct {
	Cases []probeCase `json:"cases"`
}

type envelope struct {
	Data  *dto.GenerateScheduleResponse `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

type outcome struct {
	Case       probeCase
	Status     int
	Duration   time.Duration
	Violations []string
	Error      error
}

func main() {
	var (
		baseURL      string
		fixturesPath string
		token        string
		timeout      time.Duration
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080/api/v1", "API base URL including prefix")
	flag.StringVar(&fixturesPath, "fixtures", filepath.Join("scripts", "schedule_probe", "fixtures.json"), "Path to JSON fixtures file")
	flag.StringVar(&token, "token", os.Getenv("TIMETABLE_TOKEN"), "Bearer token when auth is enabled")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Parse()

	cases, err := loadFixtures(fixturesPath)
	if err != nil {
		log.Fatalf("failed to load fixtures: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		outcomes []outcome
		breaking int
		optional int
	)
	for _, pc := range cases {
		res := probe(client, baseURL, token, pc)
		if res.Error != nil || len(res.Violations) > 0 {
			if pc.Critical {
				breaking++
			} else {
				optional++
			}
		}
		outcomes = append(outcomes, res)
	}

	printReport(outcomes)
	fmt.Printf("Breaking failures: %d, Optional failures: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadFixtures(path string) ([]probeCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx fixtures
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, err
	}
	if len(fx.Cases) == 0 {
		return nil, fmt.Errorf("no cases defined in %s", path)
	}
	return fx.Cases, nil
}

func probe(client *http.Client, baseURL, token string, pc probeCase) outcome {
	res := outcome{Case: pc}
	if client == nil {
		res.Error = errors.New("nil client")
		return res
	}

	body, err := json.Marshal(pc.Payload)
	if err != nil {
		res.Error = fmt.Errorf("encode payload: %w", err)
		return res
	}
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(baseURL, "/")+"/schedules/generate", bytes.NewReader(body))
	if err != nil {
		res.Error = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	res.Duration = time.Since(start)
	res.Status = resp.StatusCode

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Error = fmt.Errorf("read body: %w", err)
		return res
	}

	expect := pc.ExpectStatus
	if expect == 0 {
		expect = http.StatusOK
	}
	if resp.StatusCode != expect {
		res.Violations = append(res.Violations, fmt.Sprintf("status %d, expected %d", resp.StatusCode, expect))
		return res
	}
	if resp.StatusCode != http.StatusOK {
		return res
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		res.Error = fmt.Errorf("decode body: %w", err)
		return res
	}
	if env.Data == nil {
		res.Error = errors.New("response has no data")
		return res
	}
	res.Violations = append(res.Violations, checkInvariants(pc.Payload, env.Data)...)
	return res
}

// checkInvariants reports every broken guarantee in a generated schedule.
func checkInvariants(req dto.GenerateScheduleRequest, resp *dto.GenerateScheduleResponse) []string {
	var violations []string

	for _, group := range scheduler.FindConflicts(resp.ScheduleItems) {
		violations = append(violations, fmt.Sprintf("%s %s double-booked on %s at %s", group.Type, group.Key, group.Day, group.Start))
	}

	hours := make(map[string]int, len(req.Classes))
	for _, c := range req.Classes {
		if _, ok := hours[c.ID]; !ok {
			hours[c.ID] = c.Hours
		}
	}
	placed := make(map[string]int)
	for _, item := range resp.ScheduleItems {
		if _, ok := models.ParseWeekday(item.Day); !ok {
			violations = append(violations, fmt.Sprintf("item %s on unknown day %q", item.ID, item.Day))
		}
		if models.StartTimeIndex(item.StartTime) < 0 {
			violations = append(violations, fmt.Sprintf("item %s starts off grid at %s", item.ID, item.StartTime))
		}
		placed[item.ClassID]++
	}
	for classID, n := range placed {
		if required, ok := hours[classID]; ok && n > required {
			violations = append(violations, fmt.Sprintf("class %s placed %d times, needs %d", classID, n, required))
		}
	}

	for _, room := range resp.Classrooms {
		if room.UsagePercentage < 0 || room.UsagePercentage > 100 {
			violations = append(violations, fmt.Sprintf("room %s usage %d%% out of bounds", room.ID, room.UsagePercentage))
		}
	}
	if resp.Feasible != (len(resp.Shortfalls) == 0) {
		violations = append(violations, "feasible flag disagrees with shortfalls")
	}
	return violations
}

func printReport(results []outcome) {
	fmt.Println("Schedule Probe Report")
	fmt.Println("=====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if len(res.Violations) > 0 {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s (status %d, %s, critical %t)\n", status, res.Case.Name, res.Status, res.Duration, res.Case.Critical)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		}
		for _, v := range res.Violations {
			fmt.Printf("  - %s\n", v)
		}
	}
}
