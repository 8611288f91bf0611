package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// loadgen replays a synthetic transaction mix against the scoring API:
// mostly routine spending with an occasional high-amount transaction
// from an unusual location, so verdict quality is observable end to end.

type scoreRequest struct {
	UserID     string  `json:"user_id"`
	Amount     float64 `json:"amount"`
	LocationID int32   `json:"location_id"`
	HourOfDay  int     `json:"hour_of_day"`
}

type scoreResponse struct {
	UserID           string  `json:"user_id"`
	Amount           float64 `json:"amount"`
	FraudProbability float64 `json:"fraud_probability"`
	Status           string  `json:"status"`
	Context          struct {
		AvgSpend  float64 `json:"avg_spend"`
		Deviation float64 `json:"deviation"`
	} `json:"context"`
}

func main() {
	var (
		url       = flag.String("url", "http://localhost:8080/api/v1/score", "Scoring endpoint URL")
		interval  = flag.Duration("interval", 100*time.Millisecond, "Delay between transactions")
		users     = flag.Int("users", 100, "Size of the simulated user population")
		fraudRate = flag.Float64("fraud-rate", 0.1, "Fraction of transactions with a fraud-like profile")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "RNG seed")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rng := rand.New(rand.NewSource(*seed))
	client := &http.Client{Timeout: 5 * time.Second}

	logger.Info("starting load generator",
		zap.String("url", *url),
		zap.Int("users", *users),
		zap.Float64("fraud_rate", *fraudRate),
		zap.Duration("interval", *interval),
	)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	var sent, failed, blocked, review int
	for {
		select {
		case <-ctx.Done():
			logger.Info("load generator stopped",
				zap.Int("sent", sent),
				zap.Int("failed", failed),
				zap.Int("blocked", blocked),
				zap.Int("review", review),
			)
			return
		case <-ticker.C:
		}

		req := nextTransaction(rng, *users, *fraudRate)
		resp, err := send(ctx, client, *url, req)
		sent++
		if err != nil {
			failed++
			logger.Warn("request failed",
				zap.String("user_id", req.UserID),
				zap.Error(err),
			)
			continue
		}

		switch resp.Status {
		case "BLOCK":
			blocked++
		case "REVIEW":
			review++
		}
		logger.Info("scored",
			zap.String("user_id", resp.UserID),
			zap.Float64("amount", resp.Amount),
			zap.String("status", resp.Status),
			zap.Float64("probability", resp.FraudProbability),
			zap.Float64("avg_spend", resp.Context.AvgSpend),
			zap.Float64("deviation", resp.Context.Deviation),
		)
	}
}

// nextTransaction draws one transaction. The fraud profile is a large
// amount from location 3; routine spending is small amounts across
// locations 0-2.
func nextTransaction(rng *rand.Rand, users int, fraudRate float64) scoreRequest {
	req := scoreRequest{
		UserID:    fmt.Sprintf("user_%d", rng.Intn(users)),
		HourOfDay: rng.Intn(24),
	}
	if rng.Float64() < fraudRate {
		req.Amount = 200 + rng.Float64()*1800
		req.LocationID = 3
	} else {
		req.Amount = 10 + rng.Float64()*90
		req.LocationID = int32(rng.Intn(3))
	}
	return req
}

func send(ctx context.Context, client *http.Client, url string, req scoreRequest) (*scoreResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", httpResp.StatusCode)
	}

	var resp scoreResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
