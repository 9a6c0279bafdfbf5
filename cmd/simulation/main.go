package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ksred/shareledger-api/internal/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	minTrades     = 20
	maxTrades     = 200
	numWorkers    = 5
	serverAddress = "http://localhost:8080"
)

var symbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "META"}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	mu         sync.Mutex
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

func (rs *routeStats) addFailure() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.failures++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the trading API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It registers a fresh user with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"register":  {name: "Register"},
			"share":     {name: "Create Share"},
			"buy":       {name: "Buy"},
			"sell":      {name: "Sell"},
			"portfolio": {name: "Portfolio"},
		},
	}

	token, err := sc.register()
	if err != nil {
		return nil, fmt.Errorf("failed to register simulation user: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// register creates a throwaway user and returns its access token
func (sc *simulationClient) register() (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["register"].addDuration(time.Since(start))
	}()

	payload := map[string]string{
		"email":    fmt.Sprintf("sim-%d@shareledger.test", time.Now().UnixNano()),
		"name":     "Simulation Trader",
		"password": "simulation-password",
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := sc.post("/api/v1/auth/register", payload, &result); err != nil {
		return "", err
	}
	if result.Data.AccessToken == "" {
		return "", fmt.Errorf("no access token in register response")
	}

	return result.Data.AccessToken, nil
}

// createShare seeds a share, tolerating conflicts from previous runs
func (sc *simulationClient) createShare(symbol string, price decimal.Decimal) error {
	start := time.Now()
	defer func() {
		sc.stats["share"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{
		"symbol": symbol,
		"price":  price,
	}

	var result struct {
		Success bool `json:"success"`
	}
	err := sc.post("/api/v1/shares", payload, &result)
	if err != nil && strings.Contains(err.Error(), "409") {
		return nil
	}
	return err
}

// trade fires a buy or sell and records its outcome
func (sc *simulationClient) trade(action, symbol string, quantity int64) (*types.TradeResult, error) {
	start := time.Now()
	defer func() {
		sc.stats[action].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{
		"share_symbol": symbol,
		"quantity":     quantity,
	}

	var result struct {
		Success bool              `json:"success"`
		Data    types.TradeResult `json:"data"`
	}
	if err := sc.post("/api/v1/trades/"+action, payload, &result); err != nil {
		sc.stats[action].addFailure()
		return nil, err
	}

	return &result.Data, nil
}

// getPortfolio fetches the current portfolio snapshot
func (sc *simulationClient) getPortfolio() (*types.UserWithPortfolio, error) {
	start := time.Now()
	defer func() {
		sc.stats["portfolio"].addDuration(time.Since(start))
	}()

	req, err := http.NewRequest("GET", sc.baseURL+"/api/v1/user/me/portfolio", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+sc.authToken)

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("response", string(respBody)).Msg("Portfolio response")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get portfolio failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Success bool                    `json:"success"`
		Data    types.UserWithPortfolio `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	return &result.Data, nil
}

func (sc *simulationClient) post(path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", sc.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if sc.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+sc.authToken)
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("request to %s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}

	return json.Unmarshal(respBody, out)
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the trading simulation against a locally running server
// It seeds shares, then fires concurrent buy/sell traffic and reports stats
func main() {
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	// Seed the shares the workers will trade
	for _, symbol := range symbols {
		price := decimal.NewFromFloat(float64(rand.Intn(45000)+5000) / 100)
		if err := simClient.createShare(symbol, price); err != nil {
			log.Fatal().Err(err).Str("symbol", symbol).Msg("Failed to seed share")
		}
	}

	targetTrades := rand.Intn(maxTrades-minTrades) + minTrades
	log.Info().Int("target_trades", targetTrades).Msg("Starting simulation")

	var (
		wg        sync.WaitGroup
		successes int64
		rejects   int64
		countMu   sync.Mutex
	)

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for j := 0; j < targetTrades/numWorkers; j++ {
				symbol := symbols[rand.Intn(len(symbols))]
				quantity := int64(rand.Intn(10) + 1)

				// Sell attempts may legitimately bounce off an empty holding
				action := "buy"
				if rand.Intn(3) == 0 {
					action = "sell"
				}

				result, err := simClient.trade(action, symbol, quantity)
				countMu.Lock()
				if err != nil {
					rejects++
				} else {
					successes++
				}
				countMu.Unlock()

				if err != nil {
					log.Debug().Err(err).
						Int("worker", workerID).
						Str("action", action).
						Msg("trade rejected")
					continue
				}

				log.Debug().
					Int("worker", workerID).
					Str("action", action).
					Str("trade_id", result.Trade.TradeID).
					Str("total_cost", result.TotalCost.String()).
					Msg("trade executed")
			}
		}(i)
	}

	wg.Wait()

	portfolio, err := simClient.getPortfolio()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch final portfolio")
	}

	log.Info().
		Int64("successful_trades", successes).
		Int64("rejected_trades", rejects).
		Int("positions", len(portfolio.Portfolio.Shares)).
		Str("total_value", portfolio.Portfolio.TotalValue.String()).
		Msg("Simulation complete")

	simClient.printPerformanceStats()
}
